package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashimregmi/sathi/internal/config"
	"github.com/ashimregmi/sathi/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sathi",
	Short: "Sathi personal life admin assistant",
	Long:  `Sathi routes your messages to the right helper: WhatsApp reminders, trip planning with weather, and AI moodboards.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sathi/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("user.phone", "", "default WhatsApp delivery number (international format, no +)")
}
