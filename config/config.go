// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config holds the settings shared by the agsadmin tools.
// Settings come from Default(), then an optional YAML file, then
// command-line flags:
//
//     site: https://gis.example.com:6443/arcgis
//     timeout: 2m
//     insecure: true
//     log_window: 168h
//     logging:
//       file: D:\Logs\agsadmin.log
//       level: info
//     email:
//       enabled: true
//       server: smtp.gmail.com:587
//       user: alerts@example.com
//       password: secret
//       to: [gis-team@example.com]
//       subject: ArcGIS Server alert
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/notify"
	"github.com/diffeo/agsadmin/restclient"
	"gopkg.in/yaml.v2"
)

// Logging configures the log output.
type Logging struct {
	// File, if set, receives a copy of every log line.  It is
	// opened in append mode.
	File string `yaml:"file"`

	// Level is the minimum logrus level name.
	Level string `yaml:"level"`
}

// Email configures error mail.
type Email struct {
	Enabled  bool     `yaml:"enabled"`
	Server   string   `yaml:"server"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject"`
	Message  string   `yaml:"message"`
}

// Hook builds the logrus hook that sends this mail.
func (e Email) Hook() *notify.EmailHook {
	return &notify.EmailHook{
		Server:   e.Server,
		User:     e.User,
		Password: e.Password,
		To:       e.To,
		Subject:  e.Subject,
		Message:  e.Message,
	}
}

// Config is the complete tool configuration.
type Config struct {
	// Site is the default site URL, used when the command line
	// does not name a server.
	Site string `yaml:"site"`

	// Referer identifies the tool to the token service.
	Referer string `yaml:"referer"`

	// AdminToken requests tokens from the admin API instead of the
	// token service.
	AdminToken bool `yaml:"admin_token"`

	// TokenExpiration is the requested token lifetime.
	TokenExpiration time.Duration `yaml:"token_expiration"`

	// Timeout bounds each HTTP request.  The default of zero means
	// none, since cache rebuilds and site imports can run for hours.
	Timeout time.Duration `yaml:"timeout"`

	// Insecure skips TLS certificate verification.
	Insecure bool `yaml:"insecure"`

	// LogWindow is how far back log queries reach.
	LogWindow time.Duration `yaml:"log_window"`

	// PageSize is the maximum number of log messages per query.
	PageSize int `yaml:"page_size"`

	// GridCellSize is the density grid cell size in map units;
	// zero picks one from the map extent.
	GridCellSize float64 `yaml:"grid_cell_size"`

	// Pushgateway, if set, is the URL of a Prometheus Pushgateway
	// that receives the request metrics at the end of a run.
	Pushgateway string `yaml:"pushgateway"`

	Logging Logging `yaml:"logging"`
	Email   Email   `yaml:"email"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Referer:         restclient.DefaultReferer,
		TokenExpiration: restclient.DefaultTokenExpiration,
		LogWindow:       7 * 24 * time.Hour,
		PageSize:        restclient.DefaultPageSize,
		Logging: Logging{
			Level: "info",
		},
		Email: Email{
			Server:  "smtp.gmail.com:587",
			Subject: "ArcGIS Server administration error",
		},
	}
}

// Parse overlays a YAML document on the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Load reads a YAML configuration file.
func Load(filename string) (Config, error) {
	bytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, ags.ErrLocalIO{Path: filename, Err: err}
	}
	return Parse(bytes)
}

// Validate checks for settings that cannot work.
func (c Config) Validate() error {
	if c.LogWindow <= 0 {
		return fmt.Errorf("log_window must be positive, not %v", c.LogWindow)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, not %d", c.PageSize)
	}
	if c.TokenExpiration < time.Minute {
		return fmt.Errorf("token_expiration must be at least a minute, not %v", c.TokenExpiration)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.GridCellSize < 0 {
		return fmt.Errorf("grid_cell_size must not be negative")
	}
	if c.Email.Enabled {
		if c.Email.Server == "" {
			return fmt.Errorf("email is enabled but no server is set")
		}
		if len(c.Email.To) == 0 {
			return fmt.Errorf("email is enabled but has no recipients")
		}
	}
	if c.Site != "" {
		if _, err := ags.ParseSite(c.Site); err != nil {
			return err
		}
	}
	return nil
}

// Client builds a REST client for site from these settings.
func (c Config) Client(site ags.Site) *restclient.Client {
	client := restclient.New(site)
	client.Referer = c.Referer
	client.AdminToken = c.AdminToken
	client.TokenExpiration = c.TokenExpiration
	client.HTTPClient = restclient.NewHTTPClient(c.Timeout, c.Insecure)
	return client
}
