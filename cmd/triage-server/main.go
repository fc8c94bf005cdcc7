package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/triage/triage/internal/config"
	"github.com/triage/triage/internal/domain/triage"
	"github.com/triage/triage/internal/platform/db"
	"github.com/triage/triage/internal/platform/websocket"
	"github.com/triage/triage/migrations"
)

const version = "0.1.0"

// hubPublisher adapts the websocket hub to triage.EscalationPublisher so the
// platform package does not depend on the triage domain.
type hubPublisher struct {
	hub *websocket.Hub
}

func (p *hubPublisher) PublishEscalation(ctx context.Context, esc triage.Escalation) error {
	data, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}
	sessionID := esc.SessionID.String()
	for _, topic := range []string{websocket.TopicEscalations, websocket.SessionTopic(sessionID)} {
		event := websocket.Event{
			Type:      "triage.escalation",
			Topic:     topic,
			SessionID: sessionID,
			Timestamp: esc.At,
			Data:      data,
		}
		if err := p.hub.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage-server",
		Short: "Conversational triage API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(chatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the triage API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run turn log database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closeFn, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closeFn, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				state, at := "pending", ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
			}
			return nil
		},
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.TurnLogEnabled() {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run a triage conversation on the terminal",
		Long:  "Reads one message per line from stdin. Type /reset to start over; the session ends at EOF or when the conversation ends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := triage.NewService(triage.NewMemoryStore(), nil, zerolog.Nop())
			return runChat(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, svc *triage.Service, in io.Reader, out io.Writer) error {
	sess, err := svc.StartSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "assistant> %s\n", triage.GreetingMessage)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/reset" {
			if _, err := svc.ResetSession(ctx, sess.ID); err != nil {
				return err
			}
			fmt.Fprintf(out, "assistant> %s\n", triage.GreetingMessage)
			continue
		}

		res, err := svc.Turn(ctx, sess.ID, line)
		if err != nil {
			fmt.Fprintf(out, "error> %v\n", err)
			continue
		}
		fmt.Fprintf(out, "assistant> %s\n", res.Output.ResponseText)
		fmt.Fprintf(out, "[phase=%s tier=%s]\n", res.Output.NextPhase, res.Output.UpdatedContext.TriageTier)
		if res.Output.NextPhase == triage.PhaseEnded {
			return nil
		}
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	// Triage service
	svc := triage.NewService(triage.NewMemoryStore(), triage.NewEngine(triage.StubClinicalProvider{}), logger)
	svc.SetMaxUtteranceChars(cfg.MaxUtteranceChars)

	// Database (optional turn log)
	var pool *pgxpool.Pool
	if cfg.TurnLogEnabled() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		svc.SetTurnLog(triage.NewTurnLogRepoPG(pool))
	} else {
		logger.Warn().Msg("DATABASE_URL not set, turn log disabled")
	}

	// Escalation feed
	hub := websocket.NewHub(logger)
	svc.SetPublisher(&hubPublisher{hub: hub})

	e := newServer(cfg, logger, svc, hub, pool)

	// Idle session sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepIdle(sweepCtx, svc, cfg.SessionIdleTTL, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
