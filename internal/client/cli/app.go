package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/client/client"
	"github.com/dmitrijs2005/volunteerhub/internal/client/config"
	"github.com/dmitrijs2005/volunteerhub/internal/client/models"
	"github.com/dmitrijs2005/volunteerhub/internal/client/services"
	"github.com/dmitrijs2005/volunteerhub/internal/filex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const sessionDBName = "session.db"

type App struct {
	config      *config.Config
	authService services.AuthService
	session     *models.Session
	reader      *bufio.Reader
	out         io.Writer

	// mode is written by the connectivity watcher and read by the REPL.
	modeMu sync.RWMutex
	mode   Mode
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	db, err := client.OpenSessionDB(ctx, filepath.Join(dir, sessionDBName))
	if err != nil {
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	as := services.NewAuthService(api, db)

	return &App{config: c, authService: as, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		log.Printf("Switched to %s mode\n", mode)
	}
}

// Mode reports whether the server answered the last connectivity check.
func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) getStatus() string {
	s := ""
	if a.session != nil {
		s = fmt.Sprintf("%s/%s ", a.session.Email, a.session.UserType)
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// restoreSession picks up a login saved by a previous run.
func (a *App) restoreSession(ctx context.Context) {
	s, err := a.authService.Current(ctx)
	if err != nil {
		log.Printf("could not read saved session: %v", err)
		return
	}
	if s != nil {
		a.session = s
		fmt.Fprintf(a.out, "Resumed session for %s (%s)\n", s.Email, s.UserType)
	}
}

// Run restores any saved session, starts the connectivity watcher and
// blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to VolunteerHub CLI (type 'help' for commands)")
	a.restoreSession(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
