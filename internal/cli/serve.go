package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/core"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation server without the TUI",
	Long: `Run the loopback automation server headless. External tooling can
inspect the queues and stage changes into the batch; voting and
submission stay interactive-only.

Endpoints:
  GET    /health  — Server liveness and queue counts
  GET    /batch   — Current batch contents
  POST   /batch   — Stage changes with optional severity scores
  DELETE /batch   — Return all staged changes to the incoming queue
  GET    /events  — WebSocket state stream`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "override the automation port")
	serveCmd.Flags().Duration("refresh", time.Minute, "incoming queue refresh interval (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		cfg.Automation.Port = p
	}

	c := core.New(backend.NewGerritClient(cfg.Backend.URL, cfg.Backend.Username, cfg.Backend.Password), core.Options{
		Query:          cfg.Backend.Query,
		AutomationPort: cfg.Automation.Port,
		MaxBody:        cfg.Automation.MaxBody,
	})

	if err := c.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("fetching review queue: %w", err)
	}

	port, err := c.StartServer()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "batchrev automation server on 127.0.0.1:%d\n", port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	interval, _ := cmd.Flags().GetDuration("refresh")
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			if err := c.Refresh(cmd.Context()); err != nil {
				log.Printf("serve: refresh failed: %v", err)
			}
		case <-stop:
			return c.StopServer()
		}
	}
}
