// Package envinfo senses the execution environment so the oracle can
// generate commands appropriate for it (package manager, shell, distro).
package envinfo

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rcoury/aish/internal/executor"
)

// Info describes the environment commands will run in.
type Info struct {
	OS             string
	Distro         string
	Kernel         string
	Arch           string
	Shell          string
	User           string
	Hostname       string
	WorkingDir     string
	PackageManager string
	HasSudo        bool
	Remote         bool
}

// Brief renders the info as a prompt fragment.
func (i Info) Brief() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- OS: %s", i.OS)
	if i.Distro != "" {
		fmt.Fprintf(&b, " (%s)", i.Distro)
	}
	b.WriteString("\n")
	if i.Kernel != "" {
		fmt.Fprintf(&b, "- Kernel: %s\n", i.Kernel)
	}
	if i.Arch != "" {
		fmt.Fprintf(&b, "- Architecture: %s\n", i.Arch)
	}
	fmt.Fprintf(&b, "- Shell: %s\n", i.Shell)
	if i.User != "" {
		fmt.Fprintf(&b, "- User: %s\n", i.User)
	}
	if i.Hostname != "" {
		fmt.Fprintf(&b, "- Host: %s\n", i.Hostname)
	}
	if i.WorkingDir != "" {
		fmt.Fprintf(&b, "- Working directory: %s\n", i.WorkingDir)
	}
	if i.PackageManager != "" {
		fmt.Fprintf(&b, "- Package manager: %s\n", i.PackageManager)
	}
	if i.Remote {
		fmt.Fprintf(&b, "- Passwordless sudo: %v\n", i.HasSudo)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Local senses the machine the agent itself runs on.
func Local() Info {
	info := Info{
		OS:    runtime.GOOS,
		Arch:  runtime.GOARCH,
		Shell: localShell(),
	}
	if u, err := user.Current(); err == nil {
		info.User = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		info.Hostname = host
	}
	if wd, err := os.Getwd(); err == nil {
		info.WorkingDir = wd
	}
	return info
}

func localShell() string {
	if runtime.GOOS == "windows" {
		if os.Getenv("PSModulePath") != "" {
			return "powershell"
		}
		return "cmd"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	return "sh"
}

// packageManagers in probe order; first hit wins.
var packageManagers = []string{"apt", "dnf", "yum", "pacman", "zypper", "apk", "brew"}

// Probe senses a remote target by running short read-only commands over
// it. Probe failures degrade single fields, never the whole call.
func Probe(ctx context.Context, target executor.Target) Info {
	info := Info{OS: "linux", Shell: "sh", Remote: true}

	run := func(command string) string {
		res, err := target.Run(ctx, command, "")
		if err != nil || res == nil || !res.Succeeded() {
			return ""
		}
		return strings.TrimSpace(res.Stdout)
	}

	if v := run("uname -s"); v != "" {
		info.OS = strings.ToLower(v)
	}
	info.Arch = run("uname -m")
	info.Kernel = run("uname -r")
	info.User = run("whoami")
	info.Hostname = run("hostname")
	info.WorkingDir = run("pwd")

	if v := run("echo $SHELL"); v != "" {
		info.Shell = filepath.Base(v)
	}

	release := run("cat /etc/os-release 2>/dev/null || cat /etc/redhat-release 2>/dev/null")
	info.Distro = parseDistro(release)

	for _, mgr := range packageManagers {
		if run("command -v "+mgr) != "" {
			info.PackageManager = mgr
			break
		}
	}

	info.HasSudo = run("sudo -n true 2>/dev/null && echo yes") == "yes"
	return info
}

// parseDistro extracts a human-readable distro name from /etc/os-release
// key=value content, or passes single-line release text through.
func parseDistro(release string) string {
	release = strings.TrimSpace(release)
	if release == "" {
		return ""
	}
	if !strings.Contains(release, "=") {
		return release
	}
	fields := ParseOSRelease(release)
	if pretty := fields["PRETTY_NAME"]; pretty != "" {
		return pretty
	}
	if name := fields["NAME"]; name != "" {
		if version := fields["VERSION_ID"]; version != "" {
			return name + " " + version
		}
		return name
	}
	return ""
}

// ParseOSRelease parses /etc/os-release style key=value lines.
func ParseOSRelease(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		fields[strings.TrimSpace(key)] = value
	}
	return fields
}
