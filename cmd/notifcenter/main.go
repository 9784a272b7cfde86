// Command notifcenter is a terminal notification center for prop-ie
// buyers. It follows the signed-in user's realtime channel, keeps a
// bounded history on disk and serves health and metrics locally.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/app"
	"github.com/kevsands/prop-ie/internal/httpserver"
	"github.com/kevsands/prop-ie/internal/identity"
	"github.com/kevsands/prop-ie/internal/logger"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/notification"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", model.DefaultConfigPath(), "path to the configuration file")
	headless := flag.Bool("headless", false, "run without the terminal UI, logging to stderr")
	flag.Parse()

	if err := run(*configPath, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "notifcenter: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if headless {
		logFile = ""
	}
	log, err := logger.New(cfg.Log.Level, logFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting notifcenter",
		zap.String("transport", cfg.Realtime.Transport),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("retention", cfg.Storage.Retention),
	)

	snapshots, err := openSnapshotStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			log.Warn("Closing snapshot store", zap.Error(err))
		}
	}()

	source, closeSource := newSource(cfg, log)
	defer closeSource()

	session := identity.NewSession([]byte(cfg.Auth.JWTSecret), openTokenStore(log), log)
	if id := session.Restore(); id.Authenticated {
		log.Info("Restored session", zap.String("user_id", id.UserID))
	}

	center := notification.NewCenter(cfg.Storage.MemoryLimit)
	svc := notification.NewService(center, source, snapshots, newAlertSurface(cfg), notification.Options{
		SnapshotKey: cfg.Storage.SnapshotKey,
		Retention:   cfg.Storage.Retention,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.Run(ctx, session); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Notification service stopped", zap.Error(err))
		}
	}()

	if cfg.HTTP.Addr != "" {
		srv := httpserver.NewServer(cfg.HTTP.Addr, httpserver.NewRouter(serviceStatus{svc}, log), log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("HTTP server failed", zap.Error(err))
			}
		}()
	}

	if headless {
		<-ctx.Done()
	} else {
		p := tea.NewProgram(app.New(svc, session), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			stop()
			<-done
			return fmt.Errorf("running terminal UI: %w", err)
		}
	}

	log.Info("Shutting down notifcenter")
	stop()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Timed out waiting for the notification service to stop")
	}
	return nil
}

// serviceStatus adapts a notification.Service to httpserver.Status.
type serviceStatus struct {
	svc *notification.Service
}

func (s serviceStatus) Identity() model.Identity { return s.svc.Identity() }

func (s serviceStatus) ConnectionState() string { return s.svc.ConnectionState().String() }

func (s serviceStatus) Snapshot() ([]model.Notification, int) { return s.svc.Center().Snapshot() }

// issueToken prints a signed development token for the configured secret.
func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to the configuration file")
	user := fs.String("user", "", "user ID to embed in the token")
	role := fs.String("role", "buyer", "role to embed in the token")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("token: -user is required")
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	token, err := identity.IssueToken([]byte(cfg.Auth.JWTSecret), *user, *role, *ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Println(token)
	return nil
}
