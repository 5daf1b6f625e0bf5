package cmd

import (
	"fmt"
	"os"

	"datachat/config"
	"datachat/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string

	cfg config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datachat",
	Short: "Chat over CSV files and images with a hosted model",
	Long: `datachat serves the chat backend (sessions, datasets, question-answer pairs
and chart code) and runs the same chart and Q&A pipeline in batch mode.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		log = logger.New(cfg.LogFilePath, cfg.IsProduction())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables take precedence")
}
