package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcoury/aish/internal/executor"
)

// NewHostsCommand lists the SSH hosts available to --ssh, with each alias
// resolved the same way the run command resolves it.
func NewHostsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List configured SSH hosts",
		Long: `List the SSH host aliases from the config file, with the connection
details each one resolves to. Fields not set in the config fall back to
~/.ssh/config and then to defaults, exactly as 'aish run --ssh' resolves
them.`,
		RunE: hostsCommand,
	}
	cmd.Flags().String("config", "", "path to config file")
	return cmd
}

func hostsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.SSHHosts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no SSH hosts configured (add ssh_hosts to the config file)")
		return nil
	}

	aliases := make([]string, 0, len(cfg.SSHHosts))
	for alias := range cfg.SSHHosts {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tADDRESS\tUSER\tAUTH")
	for _, alias := range aliases {
		host := executor.ResolveHost(alias, cfg.SSHHosts[alias])
		auth := "agent"
		switch {
		case host.IdentityFile != "":
			auth = host.IdentityFile
		case host.Password != "":
			auth = "password"
		}
		fmt.Fprintf(w, "%s\t%s:%d\t%s\t%s\n", alias, host.Hostname, host.Port, host.User, auth)
	}
	return w.Flush()
}
