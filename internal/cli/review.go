package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/config"
	"github.com/sprite-ai/batchrev/internal/core"
	"github.com/sprite-ai/batchrev/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the interactive review session",
	Long: `Open the two-queue TUI: assigned changes on the left, the staged
batch on the right. Stage changes, let the batch sort itself by severity
and relation chain, then vote, approve or submit in bulk.

Examples:
  batchrev review                                # your review queue
  batchrev review -q "is:open project:infra"     # a custom query`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringP("query", "q", "", "change query for the incoming queue")
	reviewCmd.Flags().Bool("server", false, "start the automation server on launch")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if q, _ := cmd.Flags().GetString("query"); q != "" {
		cfg.Backend.Query = q
	}

	c := core.New(backend.NewGerritClient(cfg.Backend.URL, cfg.Backend.Username, cfg.Backend.Password), core.Options{
		Query:          cfg.Backend.Query,
		AutomationPort: cfg.Automation.Port,
		MaxBody:        cfg.Automation.MaxBody,
	})

	if err := c.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("fetching review queue: %w", err)
	}

	if autoStart, _ := cmd.Flags().GetBool("server"); autoStart {
		if _, err := c.StartServer(); err != nil {
			return err
		}
	}
	defer c.StopServer()

	return tui.Run(c)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Backend.URL == "" {
		return config.Config{}, fmt.Errorf("no backend configured: set backend.url in the config file or BATCHREV_BACKEND_URL")
	}
	return cfg, nil
}
