package mcpkit

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/mcpkit/internal/mcpkit"
)

func init() {
	rootCmd.AddCommand(stdioCmd)
	stdioCmd.Flags().StringVarP(&resourceDir, "resource-dir", "r", "", "directory served as file resources")
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve newline delimited JSON-RPC on stdin and stdout",
	Run: func(cmd *cobra.Command, args []string) {
		cmdConf := changedFlags(cmd, map[string]string{
			"resource-dir": "resource_dir",
		})

		ctx, stop := signalContext()
		defer stop()

		m := mcpkit.New()
		if err := m.CommandStdio(ctx, configDir, cmdConf, os.Stdin, os.Stdout); err != nil {
			log.Err(err).Msg("stdio server failed")
			return
		}
	},
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// changedFlags maps the flags set on the command line to config keys, so
// unset flags do not shadow the config file and environment.
func changedFlags(cmd *cobra.Command, keys map[string]string) map[string]any {
	cmdConf := make(map[string]any)
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		cmdConf[key] = f.Value.String()
	}
	return cmdConf
}
