package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashimregmi/sathi/internal/adapter"
	"github.com/ashimregmi/sathi/internal/config"
	"github.com/ashimregmi/sathi/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run Sathi as a long-lived service",
	Long:  `Starts the reminder scheduler and the enabled chat adapters (Telegram long-poll, Slack Events API) under one component lifecycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.close()

		shutdownTimeout, err := config.DurationOrDefault(cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
		if err != nil {
			return fmt.Errorf("parse server shutdown timeout: %w", err)
		}

		d := daemon.New(daemon.Config{ShutdownTimeout: shutdownTimeout})
		d.Add(daemon.WithName("scheduler", rt.scheduler.Init, rt.scheduler))

		if cfg.Adapters.Telegram.Enabled {
			d.Add(daemon.FromAdapter(adapter.NewTelegramAdapter(cfg.Adapters.Telegram, rt.agent.HandleMessage)))
		}
		if cfg.Adapters.Slack.Enabled {
			d.Add(daemon.FromAdapter(adapter.NewSlackAdapter(cfg.Adapters.Slack, rt.agent.HandleMessage)))
		}

		return d.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().Bool("adapters.telegram.enabled", false, "enable the Telegram adapter")
	daemonCmd.Flags().Bool("adapters.slack.enabled", false, "enable the Slack adapter")
}
