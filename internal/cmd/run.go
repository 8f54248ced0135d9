package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcoury/aish/internal/agent"
	"github.com/rcoury/aish/internal/config"
	"github.com/rcoury/aish/internal/contextfile"
	"github.com/rcoury/aish/internal/envinfo"
	"github.com/rcoury/aish/internal/executor"
	"github.com/rcoury/aish/internal/journal"
	"github.com/rcoury/aish/internal/logger"
	"github.com/rcoury/aish/internal/oracle"
	"github.com/rcoury/aish/internal/recovery"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <task>...",
		Short: "Execute a natural-language task",
		Long: `Execute a natural-language task by generating and running shell
commands, phase by phase.

Every generated command is shown before it runs; only a small allowlist
of read-only commands (ls, pwd, echo, ...) is executed without asking.
Ctrl+C while a command runs interrupts that command and aborts the run.

Configuration is loaded from ~/.aish/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Run locally
  aish run "install nginx and serve /srv/www"

  # Run on a remote host (ssh config aliases work)
  aish run --ssh web-01 "rotate the application logs"

  # Give the model reference material
  aish run --context deploy.md --context hosts.txt "deploy the app"

  # Skip all confirmation prompts (dangerous)
  aish run --yes "clean up /tmp"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: ~/.aish/config.yaml)")
	cmd.Flags().String("ssh", "", "Run commands on this SSH host or alias instead of locally")
	cmd.Flags().String("workdir", "", "Starting working directory for commands")
	cmd.Flags().StringArray("context", nil, "Context file handed to the model (repeatable)")
	cmd.Flags().BoolP("yes", "y", false, "Approve every command without asking")
	cmd.Flags().String("log-level", "", "Log verbosity (debug, info, warn, error)")
	cmd.Flags().String("model", "", "Override the configured model")
	cmd.Flags().String("base-url", "", "Override the configured model endpoint")
	cmd.Flags().Bool("no-journal", false, "Do not record this run in the journal")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" {
		return fmt.Errorf("task must not be empty")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewConsole(os.Stderr, cfg.LogLevel)

	// Ctrl+C cancels the context; a running command sees it as an
	// interrupt and the run aborts.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Execution target.
	sshAlias, _ := cmd.Flags().GetString("ssh")
	var target executor.Target
	if sshAlias != "" {
		host := executor.ResolveHost(sshAlias, cfg.SSHHosts[sshAlias])
		target = executor.NewSSHTarget(sshAlias, host, os.Stdout, os.Stderr)
	} else {
		local := executor.NewLocalTarget(os.Stdout, os.Stderr)
		local.GracePeriod = cfg.Executor.GracePeriod
		target = local
	}
	defer target.Close()

	// Safety gate.
	autoApprove, _ := cmd.Flags().GetBool("yes")
	var confirmer executor.Confirmer
	if autoApprove || cfg.Executor.AutoApprove {
		log.Warnf("confirmation prompts disabled; every command will run")
		confirmer = executor.ConfirmerFunc(func(string) bool { return true })
	} else {
		confirmer = NewPromptConfirmer(os.Stdin, os.Stderr)
	}
	exec := executor.New(target, executor.NewGate(cfg.Executor.AllowlistExtras, confirmer))

	// Environment brief for prompts.
	var env envinfo.Info
	if sshAlias != "" {
		log.Infof("probing %s...", sshAlias)
		env = envinfo.Probe(ctx, target)
	} else {
		env = envinfo.Local()
	}
	log.Debugf("environment:\n%s", env.Brief())

	// Context files.
	contextPaths, _ := cmd.Flags().GetStringArray("context")
	loader := contextfile.NewLoader()
	loader.MaxSize = cfg.MaxContextFileSize
	loader.Warnf = log.Warnf
	files, err := loader.LoadAll(contextPaths)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		log.Infof("loaded %d context file(s)", len(files))
	}

	client, err := oracle.New(cfg.Oracle)
	if err != nil {
		return err
	}

	var jnl *journal.Journal
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	if cfg.Journal.Enabled && !noJournal {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Warnf("journal disabled: %v", err)
			jnl = nil
		} else {
			defer jnl.Close()
		}
	}

	retry := recovery.NewManager(cfg.Retry.MaxRetries, cfg.Retry.MaxConsecutiveFailures)
	retry.SetElevationTool(cfg.Retry.ElevationTool)

	workdir, _ := cmd.Flags().GetString("workdir")
	a := agent.New(client, exec, retry, log, jnl, agent.Options{
		WorkDir:      workdir,
		Environment:  env.Brief(),
		ExtraContext: contextfile.Format(files),
	})

	runErr := a.Run(ctx, task)
	printSummary(cmd, a)

	if errors.Is(runErr, agent.ErrDeclined) {
		// The user vetoed a command; that is a normal ending.
		log.Infof("run stopped: %v", runErr)
		return nil
	}
	return runErr
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Oracle.Model = model
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.Oracle.BaseURL = baseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printSummary(cmd *cobra.Command, a *agent.Agent) {
	log := a.History()
	if log == nil {
		return
	}
	total, succeeded, failed := log.Totals()
	fmt.Fprintf(cmd.OutOrStdout(), "\nExecution Summary:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Steps run: %d\n", total)
	fmt.Fprintf(cmd.OutOrStdout(), "  Succeeded: %d\n", succeeded)
	fmt.Fprintf(cmd.OutOrStdout(), "  Failed:    %d\n", failed)
}
