package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/server"
)

func secondsDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid port: %d", cfg.Server.Port)
		}

		client, err := buildClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		srv := server.New(cfg, client)
		srv.Setup()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()
		fmt.Printf("Serving on %s:%d\n", cfg.Server.Host, cfg.Server.Port)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().String("host", "", "bind host (overrides config)")
	serveCmd.Flags().Int("port", 0, "bind port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
