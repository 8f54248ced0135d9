package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"

	"github.com/rcoury/aish/internal/models"
)

const (
	// DefaultPollInterval bounds how often buffered remote output is drained
	// while the exit status is not yet available.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultInterruptGrace is how long to wait after sending the interrupt
	// byte before retransmitting it once.
	DefaultInterruptGrace = 500 * time.Millisecond

	dialTimeout   = 10 * time.Second
	interruptByte = 0x03 // ETX, the Ctrl-C control byte
)

// HostConfig describes how to reach one SSH host. Fields left empty are
// resolved from the user's ssh_config as a fallback, then defaulted.
type HostConfig struct {
	Hostname     string `yaml:"hostname"`
	User         string `yaml:"user"`
	Port         int    `yaml:"port"`
	IdentityFile string `yaml:"identity_file"`
	Password     string `yaml:"password"`
}

// ResolveHost fills in the gaps of an explicit host config from the host
// alias lookup table in ~/.ssh/config, then applies defaults. The explicit
// config always wins over the lookup table.
func ResolveHost(alias string, cfg HostConfig) HostConfig {
	if cfg.Hostname == "" {
		cfg.Hostname = ssh_config.Get(alias, "HostName")
	}
	if cfg.User == "" {
		cfg.User = ssh_config.Get(alias, "User")
	}
	if cfg.Port == 0 {
		if p, err := strconv.Atoi(ssh_config.Get(alias, "Port")); err == nil {
			cfg.Port = p
		}
	}
	if cfg.IdentityFile == "" {
		if id := ssh_config.Get(alias, "IdentityFile"); id != "" && id != "~/.ssh/identity" {
			cfg.IdentityFile = id
		}
	}

	if cfg.Hostname == "" {
		cfg.Hostname = alias
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.User == "" {
		if u, err := user.Current(); err == nil {
			cfg.User = u.Username
		}
	}
	return cfg
}

// SSHTarget runs commands on a remote host over one SSH connection. The
// connection is opened on first use, reused for the rest of the run, and
// closed explicitly; it is never pooled.
//
// Remote directory state is not tracked by the transport: a working
// directory is simulated by prefixing the command with a cd, which is
// approximate, not authoritative.
type SSHTarget struct {
	StdoutSink io.Writer
	StderrSink io.Writer

	PollInterval   time.Duration
	InterruptGrace time.Duration

	alias  string
	cfg    HostConfig
	client *ssh.Client
}

// NewSSHTarget creates a target for the named host alias. cfg comes from the
// explicit configuration; unset fields fall back to ~/.ssh/config.
func NewSSHTarget(alias string, cfg HostConfig, stdout, stderr io.Writer) *SSHTarget {
	return &SSHTarget{
		StdoutSink:     stdout,
		StderrSink:     stderr,
		PollInterval:   DefaultPollInterval,
		InterruptGrace: DefaultInterruptGrace,
		alias:          alias,
		cfg:            ResolveHost(alias, cfg),
	}
}

// Name implements Target.
func (t *SSHTarget) Name() string { return "ssh:" + t.alias }

// Close implements Target, tearing down the transport.
func (t *SSHTarget) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func (t *SSHTarget) connect() error {
	if t.client != nil {
		return nil
	}

	var auth []ssh.AuthMethod
	if t.cfg.IdentityFile != "" {
		key, err := os.ReadFile(expandHome(t.cfg.IdentityFile))
		if err != nil {
			return fmt.Errorf("read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return fmt.Errorf("parse identity file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if t.cfg.Password != "" {
		auth = append(auth, ssh.Password(t.cfg.Password))
	}
	if len(auth) == 0 {
		return fmt.Errorf("host %s: no identity file or password configured", t.alias)
	}

	clientCfg := &ssh.ClientConfig{
		User:            t.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // matches interactive ssh first-connect behavior
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(t.cfg.Hostname, strconv.Itoa(t.cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	t.client = client
	return nil
}

// Run implements Target. A PTY is requested so interrupt control bytes reach
// the remote process group.
func (t *SSHTarget) Run(ctx context.Context, command, workdir string) (*models.ExecutionResult, error) {
	if err := t.connect(); err != nil {
		return nil, err
	}

	session, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, 120, modes); err != nil {
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if workdir != "" {
		command = fmt.Sprintf("cd %s && %s", quoteArg(workdir), command)
	}
	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("start remote command: %w", err)
	}

	stdoutCh := pump(stdoutPipe)
	stderrCh := pump(stderrPipe)
	waitCh := make(chan error, 1)
	go func() { waitCh <- session.Wait() }()

	var stdoutBuf, stderrBuf bytes.Buffer
	ticker := time.NewTicker(t.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case chunk, ok := <-stdoutCh:
			if !ok {
				stdoutCh = nil
				continue
			}
			stdoutBuf.Write(chunk)
			tee(t.StdoutSink, chunk)
		case chunk, ok := <-stderrCh:
			if !ok {
				stderrCh = nil
				continue
			}
			stderrBuf.Write(chunk)
			tee(t.StderrSink, chunk)
		case waitErr := <-waitCh:
			drain(stdoutCh, &stdoutBuf, t.StdoutSink)
			drain(stderrCh, &stderrBuf, t.StderrSink)
			return t.finish(waitErr, &stdoutBuf, &stderrBuf), nil
		case <-ctx.Done():
			t.interrupt(stdin, waitCh)
			drain(stdoutCh, &stdoutBuf, t.StdoutSink)
			drain(stderrCh, &stderrBuf, t.StderrSink)
			return interruptedResult(decode(stdoutBuf.Bytes()), decode(stderrBuf.Bytes())), nil
		case <-ticker.C:
			// bounded poll; nothing buffered this interval
		}
	}
}

// interrupt transmits the interrupt control byte, waits briefly, and
// retransmits once if the remote process has not exited.
func (t *SSHTarget) interrupt(stdin io.WriteCloser, waitCh <-chan error) {
	stdin.Write([]byte{interruptByte}) //nolint:errcheck
	select {
	case <-waitCh:
		return
	case <-time.After(t.interruptGrace()):
	}
	stdin.Write([]byte{interruptByte}) //nolint:errcheck
	select {
	case <-waitCh:
	case <-time.After(t.interruptGrace()):
	}
}

func (t *SSHTarget) finish(waitErr error, stdout, stderr *bytes.Buffer) *models.ExecutionResult {
	result := &models.ExecutionResult{
		Stdout:      decode(stdout.Bytes()),
		Stderr:      decode(stderr.Bytes()),
		WasExecuted: true,
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*ssh.ExitError); ok {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = waitErr.Error()
			}
		}
	}
	return result
}

func (t *SSHTarget) pollInterval() time.Duration {
	if t.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return t.PollInterval
}

func (t *SSHTarget) interruptGrace() time.Duration {
	if t.InterruptGrace <= 0 {
		return DefaultInterruptGrace
	}
	return t.InterruptGrace
}

// pump reads a remote stream into a channel, closing it on EOF.
func pump(r io.Reader) <-chan []byte {
	ch := make(chan []byte, 16)
	go func() {
		defer close(ch)
		for {
			chunk := make([]byte, 4096)
			n, err := r.Read(chunk)
			if n > 0 {
				ch <- chunk[:n]
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// drain collects whatever remains buffered on a pump channel.
func drain(ch <-chan []byte, buf *bytes.Buffer, sink io.Writer) {
	if ch == nil {
		return
	}
	deadline := time.After(DefaultInterruptGrace)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return
			}
			buf.Write(chunk)
			tee(sink, chunk)
		case <-deadline:
			return
		}
	}
}

func tee(sink io.Writer, chunk []byte) {
	if sink != nil {
		sink.Write(chunk) //nolint:errcheck
	}
}

// decode converts raw remote bytes to a string permissively: invalid UTF-8
// sequences are replaced, never fatal.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// quoteArg single-quotes a shell argument for the remote cd prefix.
func quoteArg(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
