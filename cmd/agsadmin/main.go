// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command agsadmin scripts administrative tasks against an ArcGIS
// Server site: listing, starting and stopping services, backing up
// and restoring the site, checking availability and permissions,
// mining the server logs, and rebuilding map caches.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/config"
	"github.com/diffeo/agsadmin/ops"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitConnection = 3
	exitAuth       = 4
	exitCheck      = 5
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		cancel()
	}()
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// exitCode maps an error from a command to the process exit status.
func exitCode(err error) int {
	var (
		usage      ags.ErrUsage
		badSite    ags.ErrInvalidSiteURL
		connection ags.ErrConnectionFailed
		auth       ags.ErrAuthenticationFailed
		check      ags.ErrCheckFailed
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage), errors.As(err, &badSite):
		return exitUsage
	case errors.As(err, &connection):
		return exitConnection
	case errors.As(err, &auth):
		return exitAuth
	case errors.As(err, &check):
		return exitCheck
	}
	return exitFailure
}

func newApp(stdout, stderr io.Writer, site *ags.Site) *cli.App {
	app := cli.NewApp()
	app.Name = "agsadmin"
	app.Usage = "script ArcGIS Server administrative tasks"
	app.UsageText = "agsadmin [options] server port adminUser adminPass command [args...]\n" +
		"   agsadmin [options] --site URL adminUser adminPass command [args...]\n" +
		"   agsadmin /?"
	app.HideVersion = true
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "YAML configuration file",
			EnvVar: "AGSADMIN_CONFIG",
		},
		cli.GenericFlag{
			Name:   "site",
			Value:  site,
			Usage:  "http(s)://host:port/arcgis URL of the site, instead of server and port",
			EnvVar: "AGSADMIN_SITE",
		},
		cli.StringFlag{
			Name:   "log-file",
			Usage:  "append log lines to this file",
			EnvVar: "AGSADMIN_LOG_FILE",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "minimum level to log (debug, info, warning, error)",
			EnvVar: "AGSADMIN_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "referer",
			Usage:  "referer the token is issued for",
			EnvVar: "AGSADMIN_REFERER",
		},
		cli.BoolFlag{
			Name:   "admin-token",
			Usage:  "get tokens from the admin API instead of the token service",
			EnvVar: "AGSADMIN_ADMIN_TOKEN",
		},
		cli.BoolFlag{
			Name:   "insecure",
			Usage:  "do not verify TLS certificates",
			EnvVar: "AGSADMIN_INSECURE",
		},
		cli.DurationFlag{
			Name:   "timeout",
			Usage:  "give up on a request after this long",
			EnvVar: "AGSADMIN_TIMEOUT",
		},
		cli.StringSliceFlag{
			Name:   "email-to",
			Usage:  "mail errors to this address; may be repeated",
			EnvVar: "AGSADMIN_EMAIL_TO",
		},
		cli.StringFlag{
			Name:   "email-server",
			Usage:  "SMTP server host:port",
			EnvVar: "AGSADMIN_EMAIL_SERVER",
		},
		cli.StringFlag{
			Name:   "email-user",
			Usage:  "SMTP user name",
			EnvVar: "AGSADMIN_EMAIL_USER",
		},
		cli.StringFlag{
			Name:   "email-password",
			Usage:  "SMTP password",
			EnvVar: "AGSADMIN_EMAIL_PASSWORD",
		},
		cli.StringFlag{
			Name:   "pushgateway",
			Usage:  "push request metrics to this Prometheus Pushgateway URL",
			EnvVar: "AGSADMIN_PUSHGATEWAY",
		},
	}
	return app
}

// loadConfig reads the configuration file, if any, and overlays the
// command-line flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("log-file") {
		cfg.Logging.File = c.String("log-file")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("referer") {
		cfg.Referer = c.String("referer")
	}
	if c.IsSet("admin-token") {
		cfg.AdminToken = c.Bool("admin-token")
	}
	if c.IsSet("insecure") {
		cfg.Insecure = c.Bool("insecure")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("email-to") {
		cfg.Email.To = c.StringSlice("email-to")
		cfg.Email.Enabled = true
	}
	if c.IsSet("email-server") {
		cfg.Email.Server = c.String("email-server")
	}
	if c.IsSet("email-user") {
		cfg.Email.User = c.String("email-user")
	}
	if c.IsSet("email-password") {
		cfg.Email.Password = c.String("email-password")
	}
	if c.IsSet("pushgateway") {
		cfg.Pushgateway = c.String("pushgateway")
	}
	return cfg, cfg.Validate()
}

// siteArgs splits the positional arguments into the site, the
// credentials, and the command line.  Without a --site flag or a
// configured site the first two arguments are the server and port.
func siteArgs(flagSite ags.Site, cfg config.Config, args []string) (site ags.Site, user, pass string, command []string, err error) {
	switch {
	case flagSite.Host != "":
		site = flagSite
	case cfg.Site != "":
		if site, err = ags.ParseSite(cfg.Site); err != nil {
			return
		}
	default:
		if len(args) < 2 {
			err = ags.ErrUsage{Message: ops.NotEnoughArguments}
			return
		}
		if site, err = ags.ParseSite("http://" + args[0] + ":" + args[1] + ags.DefaultContext); err != nil {
			return
		}
		args = args[2:]
	}
	if len(args) < 3 {
		err = ags.ErrUsage{Message: ops.NotEnoughArguments}
		return
	}
	return site, args[0], args[1], args[2:], nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var site ags.Site
	code := exitOK
	app := newApp(stdout, stderr, &site)
	app.Action = func(c *cli.Context) error {
		code = execute(ctx, c, site, stdout, stderr)
		return nil
	}
	if err := app.Run(args); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	return code
}

func execute(ctx context.Context, c *cli.Context, flagSite ags.Site, stdout, stderr io.Writer) int {
	positional := []string(c.Args())
	if len(positional) > 0 && positional[0] == "/?" {
		ops.Usage(stdout, c.App.Name)
		return exitOK
	}

	cfg, err := loadConfig(c)
	if err != nil {
		fmt.Fprintln(stderr, err)
		if exitCode(err) == exitFailure {
			return exitUsage
		}
		return exitCode(err)
	}

	logger, closer, err := cfg.NewLogger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	defer closer.Close()
	log := logger.WithField("run", uuid.NewV4().String())

	site, user, pass, command, err := siteArgs(flagSite, cfg, positional)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return exitCode(err)
	}

	client := cfg.Client(site)
	client.Logger = log
	env := &ops.Env{
		Client:   client,
		Config:   cfg,
		Username: user,
		Password: pass,
		Out:      stdout,
		Log:      log,
	}

	log.WithFields(logrus.Fields{
		"site":    site.String(),
		"command": command[0],
	}).Info("process started")
	err = ops.Run(ctx, env, command)
	if _, isUsage := err.(ags.ErrUsage); isUsage {
		fmt.Fprintln(stdout, err)
	} else if err != nil {
		log.WithError(err).Error("process failed")
	} else {
		log.Info("process ended")
	}

	if cfg.Pushgateway != "" {
		pushErr := push.New(cfg.Pushgateway, "agsadmin").
			Gatherer(prometheus.DefaultGatherer).
			Grouping("command", command[0]).
			Push()
		if pushErr != nil {
			log.WithError(pushErr).Warn("could not push metrics")
		}
	}
	return exitCode(err)
}
