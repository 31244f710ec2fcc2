package mcpkit

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/mcpkit/internal/mcpkit"
	"github.com/sjzar/mcpkit/internal/mcpkit/conf"
)

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&serverAddr, "addr", "a", conf.DefaultHTTPAddr, "server address")
	serverCmd.Flags().StringVarP(&resourceDir, "resource-dir", "r", "", "directory served as file resources")
}

var (
	serverAddr  string
	resourceDir string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cmdConf := changedFlags(cmd, map[string]string{
			"addr":         "http_addr",
			"resource-dir": "resource_dir",
		})

		ctx, stop := signalContext()
		defer stop()

		m := mcpkit.New()
		if err := m.CommandHTTPServer(ctx, configDir, cmdConf); err != nil {
			log.Err(err).Msg("failed to start server")
			return
		}
	},
}
