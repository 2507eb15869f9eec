package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-profile-portal/internal/client"
	"github.com/pribylovaa/go-profile-portal/internal/session"
)

// globals — общие флаги всех команд.
type globals struct {
	baseURL     string
	redisURL    string
	redisPrefix string
	timeout     time.Duration
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Command-line client for the profile portal",
		Long: `portalctl signs in to the profile portal and keeps the session
in Redis (--redis-url) so that several invocations share it.
Without Redis the session lives only for one command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.baseURL, "url", envOr("PORTAL_URL", "http://localhost:8080"), "portal base URL")
	pf.StringVar(&g.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL for the shared session")
	pf.StringVar(&g.redisPrefix, "redis-prefix", session.DefaultRedisPrefix, "Redis key prefix")
	pf.DurationVar(&g.timeout, "timeout", 10*time.Second, "request timeout")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log outgoing requests")

	rootCmd.AddCommand(
		loginCmd(g),
		registerCmd(g),
		meCmd(g),
		refreshCmd(g),
		logoutCmd(g),
		statusCmd(g),
		openCmd(g),
		watchCmd(g),
	)

	return rootCmd
}

// env — клиент и закрытие ресурсов одной команды.
type env struct {
	client *client.Client
	store  *session.Store
	close  func()
}

// open собирает KV (Redis или память), cookie jar, Store и клиент.
// Cookie jar восстанавливается из KV, чтобы страницы видели сохранённую сессию.
func (g *globals) open(ctx context.Context) (*env, error) {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var (
		kv      session.KV
		closeKV = func() {}
	)
	if g.redisURL != "" {
		rkv, err := session.NewRedisKV(g.redisURL, g.redisPrefix)
		if err != nil {
			return nil, err
		}
		kv = rkv
		closeKV = func() { _ = rkv.Close() }
	} else {
		log.Warn("session_not_persisted", slog.String("hint", "set --redis-url to keep the session between commands"))
		kv = session.NewMemoryKV()
	}

	jar, err := session.NewJarCookies(nil, g.baseURL)
	if err != nil {
		closeKV()
		return nil, err
	}

	store := session.NewStore(kv, jar)
	if err := store.Sync(ctx); err != nil {
		closeKV()
		return nil, err
	}

	c, err := client.New(client.Config{
		BaseURL:   g.baseURL,
		Timeout:   g.timeout,
		UserAgent: "portalctl",
		Logger:    log,
	}, store, jar)
	if err != nil {
		closeKV()
		return nil, err
	}

	return &env{client: c, store: store, close: closeKV}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
