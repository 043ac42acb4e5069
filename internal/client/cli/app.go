package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/filex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.Mutex
	mode Mode
}

// NewApp opens the local token cache and wires the API client to it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	cache := services.NewTokenCache(db)
	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, cache)

	a := newApp(c, services.NewAuthService(apiClient, cache), bufio.NewReader(os.Stdin), os.Stdout)
	a.db = db
	return a, nil
}

func newApp(c *config.Config, as services.AuthService, reader *bufio.Reader, out io.Writer) *App {
	return &App{config: c, authService: as, reader: reader, out: out}
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Run executes args[0] as a single command when given, otherwise it starts
// the interactive loop and blocks until the user leaves it or ctx is done.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return a.Exec(ctx, args[0])
	}

	fmt.Fprintln(a.out, "Welcome to gophauth CLI (type 'help' for commands)")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	return nil
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

// getStatus renders the prompt suffix, e.g. "(a@example.com online)".
func (a *App) getStatus(ctx context.Context) string {
	s := ""
	if email, loggedIn, err := a.authService.Status(ctx); err == nil && loggedIn {
		s = email + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher probes the server every interval until ctx is
// done and keeps the prompt's online/offline marker current.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
