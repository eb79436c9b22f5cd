package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
)

var (
	configPath string
	logLevel   string
	tenantID   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "queryorch",
	Short:         "Route questions to knowledge retrieval, chart generation or direct answers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger.Configure(cfg.Logging.Format, os.Stderr)
		logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(askCmd, classifyCmd, serveCmd, mcpCmd, migrateCmd, seedCmd)
}

// tenantOrDefault is the entry-point default for an unspecified tenant.
func tenantOrDefault() string {
	if tenantID != "" {
		return tenantID
	}
	return cfg.Server.DefaultTenant
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
