package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/habedi/petcli/pkg/validation"
	"github.com/kelseyhightower/envconfig"
)

// DefaultLanguage is used when neither the environment nor the stored
// preference names a language.
const DefaultLanguage = "en"

// Languages are the UI languages the API can answer in, keyed by code.
var Languages = map[string]string{
	"en": "English",
	"pt": "Português",
	"es": "Español",
	"de": "Deutsch",
	"fr": "Français",
	"ja": "日本語",
	"zh": "中文",
	"it": "Italiano",
}

// Config holds the runtime settings, read from PETCLI_* environment variables.
// Keys are spelled out in full so envconfig's unprefixed fallback lookup
// cannot pick up unrelated variables such as LANGUAGE.
type Config struct {
	APIURL      string        `envconfig:"PETCLI_API_URL"      default:"http://localhost:8000"`
	DBPath      string        `envconfig:"PETCLI_DB_PATH"`
	HTTPTimeout time.Duration `envconfig:"PETCLI_HTTP_TIMEOUT" default:"30s"`
	// Language overrides the stored preference when set.
	Language string `envconfig:"PETCLI_LANGUAGE"`
}

// Load populates Config from the environment and fills in derived defaults.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("failed to read configuration: %w", err)
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	return c, nil
}

// DefaultDBPath returns ~/.petcli/petcli.db, falling back to the working
// directory when the home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".petcli", "petcli.db")
	}
	return filepath.Join(home, ".petcli", "petcli.db")
}

// Validate checks the values Load cannot check by type alone.
func (c Config) Validate() error {
	var errs validation.Errors
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add(&validation.FieldError{Field: "api_url", Message: fmt.Sprintf("must be an http(s) URL, got %q", c.APIURL)})
	}
	errs.Add(validation.ValidateNonEmptyString("db_path", c.DBPath))
	if c.HTTPTimeout < 0 {
		errs.Add(&validation.FieldError{Field: "http_timeout", Message: "must not be negative"})
	}
	if c.Language != "" {
		errs.Add(validation.ValidateLanguageCode(c.Language, Languages))
	}
	return errs.Err()
}
