package mcpkit

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	// windows only
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "debug")
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "config directory")
	rootCmd.PersistentPreRun = initLog
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
	}
}

var configDir string

var rootCmd = &cobra.Command{
	Use:     "mcpkit",
	Short:   "MCP server over stdio, SSE and plain HTTP",
	Long:    `mcpkit serves Model Context Protocol tools, prompts and resources over JSON-RPC 2.0.`,
	Example: `mcpkit server --addr 127.0.0.1:5030 --resource-dir ./docs`,
	Args:    cobra.MinimumNArgs(0),
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}
