package main

import (
	"fmt"
	"os"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "taskmanager",
	Short: "AI Task Manager API server",
	Long:  `AI Task Manager serves the task, conversation and assistant HTTP API.`,
	RunE:  serveCmd.RunE,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to .env file")
}

// loadConfig reads the .env file, if any, then the configuration
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read %s: %v\n", envFile, err)
	}
	return config.LoadConfig(configPath)
}
