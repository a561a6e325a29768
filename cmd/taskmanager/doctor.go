package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/ai-task-manager-go/internal/services/storage"
	"github.com/ai-task-manager-go/pkg/logger"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, AI provider selection and storage connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log := logger.NewNop()
		out := cmd.OutOrStdout()

		gateway := ai.New(cfg.AI, log, nil)
		fmt.Fprintf(out, "AI service type: %s\n", cfg.AI.Type)
		if gateway.Enabled() {
			fmt.Fprintf(out, "AI provider:     %s (enabled)\n", gateway.Provider())
		} else {
			fmt.Fprintln(out, "AI provider:     none (fallback mode)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		manager, err := storage.NewManager(ctx, cfg.Storage, log, nil)
		if err != nil {
			return err
		}
		defer manager.Close()

		fmt.Fprintf(out, "Storage:         %s (%s)\n", manager.Type(), manager.Status(ctx))
		if tasks, messages, err := manager.Counts(ctx); err == nil {
			fmt.Fprintf(out, "Stored:          %d tasks, %d messages\n", tasks, messages)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
