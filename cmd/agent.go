package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/raccommode/P-StreamRec/internal/application"
	"github.com/raccommode/P-StreamRec/internal/config"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the dashboard synchronization agent",
	RunE:  runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	agent, err := application.NewAgent(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return agent.Run(ctx)
}
