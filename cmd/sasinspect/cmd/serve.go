/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ssargent/sasinspect/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the sasinspect REST API server.

Every route under /api/v1 requires the X-API-Key header. The key comes from
server.api_key in the config file (written by 'sasinspect init'), from
SASINSPECT_SERVER_API_KEY, or from --api-key. Prometheus metrics are served
at /metrics. Reports are published to AMQP when amqp.url is configured.

Examples:
  sasinspect serve
  sasinspect serve --port 9000 --bind 0.0.0.0
  sasinspect serve --config /etc/sasinspect/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Server.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("bind") {
			cfg.Server.Bind, _ = flags.GetString("bind")
		}
		if flags.Changed("api-key") {
			cfg.Server.APIKey, _ = flags.GetString("api-key")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}

		env, err := openEnvironment(envOptions{
			ledger:   true,
			storage:  true,
			publish:  true,
			registry: prometheus.DefaultRegisterer,
		})
		if err != nil {
			return err
		}
		defer env.release()

		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Infow("starting sasinspect",
			"bind", cfg.Server.Bind,
			"port", cfg.Server.Port,
			"data_dir", cfg.DataDir,
			"rpc", cfg.RPC.Endpoint,
			"program", cfg.Program.ID)

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, env.inspector, api.ServerConfig{
			Port:   cfg.Server.Port,
			Bind:   cfg.Server.Bind,
			APIKey: cfg.Server.APIKey,
			Logger: logger.With("component", "api"),
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for client authentication")
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
