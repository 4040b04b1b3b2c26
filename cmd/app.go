package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/habedi/petcli/auth"
	"github.com/habedi/petcli/client"
	"github.com/habedi/petcli/config"
	"github.com/habedi/petcli/db"
	"github.com/habedi/petcli/pkg/clierr"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	sessionExpiredMessage = "Session expired. Please run 'petcli login'."
	notLoggedInMessage    = "You are not logged in. Please run 'petcli login'."

	languageSettingKey = "ui_language"
)

// app holds the dependencies shared by the commands of one invocation.
type app struct {
	cfg config.Config

	gdb      *gorm.DB
	session  *auth.Session
	settings db.SettingsRepository
	cache    db.AnimalRepository
	api      *client.Client
	auth     *client.AuthService
	animals  *client.AnimalService

	errOut         io.Writer
	expiredOnce    sync.Once
	sessionExpired atomic.Bool
}

func newApp(cfg config.Config) *app {
	return &app{cfg: cfg, errOut: os.Stderr}
}

// open validates the configuration, opens the database, restores the session
// and builds the API client. It is a no-op once it has succeeded.
func (a *app) open(ctx context.Context, errOut io.Writer) error {
	if errOut != nil {
		a.errOut = errOut
	}
	if a.api != nil {
		return nil
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gdb, err := db.Open(a.cfg.DBPath)
	if err != nil {
		return clierr.New(clierr.Internal, "Failed to open the local database.", err)
	}
	a.gdb = gdb
	a.settings = db.NewSettingsRepository(gdb)
	a.cache = db.NewAnimalRepository(gdb)

	a.session = auth.NewSession(db.NewTokenRepository(gdb))
	if err := a.session.Load(ctx); err != nil {
		return clierr.New(clierr.Internal, "Failed to read the stored session.", err)
	}

	api, err := client.New(a.cfg.APIURL, a.session,
		client.WithHTTPTimeout(a.cfg.HTTPTimeout),
		client.WithDefaultHeader("Accept-Language", a.language(ctx)),
		client.WithOnSessionExpired(a.notifySessionExpired),
	)
	if err != nil {
		return clierr.New(clierr.Validation, "Invalid API configuration.", err)
	}
	a.api = api
	a.auth = client.NewAuthService(api, a.session)
	a.animals = client.NewAnimalService(api)
	return nil
}

func (a *app) close() {
	if a.gdb == nil {
		return
	}
	if err := db.Close(a.gdb); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
	}
	a.gdb = nil
}

// language picks the UI language: environment, then stored preference, then
// the default.
func (a *app) language(ctx context.Context) string {
	if a.cfg.Language != "" {
		return a.cfg.Language
	}
	if a.settings != nil {
		lang, ok, err := a.settings.Get(ctx, languageSettingKey)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read language preference")
		} else if ok {
			if _, known := config.Languages[lang]; known {
				return lang
			}
		}
	}
	return config.DefaultLanguage
}

// notifySessionExpired tells the user to log in again. Concurrent requests
// failing together print the notice once.
func (a *app) notifySessionExpired() {
	a.expiredOnce.Do(func() {
		a.sessionExpired.Store(true)
		fmt.Fprintln(a.errOut, sessionExpiredMessage)
	})
}

func (a *app) requireLogin() error {
	if !a.session.IsAuthenticated() {
		return clierr.New(clierr.Auth, notLoggedInMessage, nil)
	}
	return nil
}
