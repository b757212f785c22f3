package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"github.com/zohaib/garage/internal/config"
	"github.com/zohaib/garage/internal/logging"
	"github.com/zohaib/garage/internal/router"
	"github.com/zohaib/garage/internal/tui"
	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/session"
	"github.com/zohaib/garage/pkg/store"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "--version", "version", "-v":
		fmt.Fprintln(out, "garage "+version)
		return nil
	case "help", "--help", "-h":
		printHelp(out)
		return nil
	case "", "login", "logout", "whoami", "lookup", "projects":
	default:
		return fmt.Errorf("unknown command %q, see garage help", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.logger.Info("start", "command", cmd, "version", version, "api", cfg.APIURL, "session_backend", cfg.SessionBackend)

	switch cmd {
	case "login":
		return runTUI(a, router.AdminLogin)
	case "logout":
		return runLogout(ctx, out, a.sess)
	case "whoami":
		return runWhoami(ctx, out, a.sess)
	case "lookup":
		if len(args) < 2 {
			return errors.New("usage: garage lookup <registration>")
		}
		return runLookup(ctx, out, a.client, strings.Join(args[1:], ""))
	case "projects":
		return runProjects(ctx, out, a.client)
	}
	return runTUI(a, router.Landing)
}

// app is everything a command needs, built once from the config.
type app struct {
	logger  *slog.Logger
	client  *client.Client
	sess    *session.Session
	closers []func() error
}

func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, closeLog, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, closers: []func() error{closeLog}}

	origin, err := store.Origin(cfg.APIURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	st, closeStore, err := openStore(ctx, cfg, origin, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	a.client = client.New(cfg.APIURL, st, client.WithTimeout(cfg.Timeout), client.WithLogger(logger))
	a.sess = session.New(ctx, a.client, st, session.WithLogger(logger))
	a.sess.Bind(a.client)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]() //nolint:errcheck // shutdown path
	}
}

// openStore returns the session store for the configured backend and a
// func that releases it.
func openStore(ctx context.Context, cfg *config.Config, origin string, logger *slog.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return store.NewMemory(), noop, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedis(rdb, cfg.RedisPrefix, origin)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			rdb.Close() //nolint:errcheck
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return rs, rdb.Close, nil
	default:
		fs, err := store.OpenFile(cfg.SessionDir, origin, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	}
}

func runTUI(a *app, start string) error {
	m := tui.NewApp(a.client, a.sess, version, start)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func runLogout(ctx context.Context, out io.Writer, sess *session.Session) error {
	if !sess.IsAuthenticated() {
		fmt.Fprintln(out, "Already logged out.")
		return nil
	}
	sess.Logout(ctx)
	fmt.Fprintln(out, "Logged out.")
	return nil
}

func runWhoami(ctx context.Context, out io.Writer, sess *session.Session) error {
	if !sess.IsAuthenticated() {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}
	sess.Initialize(ctx)
	printProfile(out, sess.User(), tokenExpiry(sess))
	return nil
}

// tokenExpiry reads the access token lifetime for display. It is zero when
// the token carries no readable exp claim.
func tokenExpiry(sess *session.Session) time.Duration {
	info, ok := sess.TokenInfo()
	if !ok {
		return 0
	}
	return info.ExpiresIn(time.Now())
}

func runLookup(ctx context.Context, out io.Writer, c *client.Client, registration string) error {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return errors.New("please enter a registration number")
	}
	v, err := c.LookupRegistration(ctx, registration)
	if err != nil {
		return errors.New(client.UserMessage(err))
	}
	printVehicle(out, *v)
	return nil
}

func runProjects(ctx context.Context, out io.Writer, c *client.Client) error {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return errors.New(client.UserMessage(err))
	}
	printProjects(out, projects)
	return nil
}
