// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command gdbmaint compresses a PostgreSQL enterprise geodatabase and
// refreshes the statistics of every table the connected user owns.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/diffeo/agsadmin/config"
	"github.com/diffeo/agsadmin/postgres"
	uuid "github.com/satori/go.uuid"
	"github.com/urfave/cli"
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

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := 0
	app := cli.NewApp()
	app.Name = "gdbmaint"
	app.Usage = "compress and analyze a PostgreSQL geodatabase"
	app.HideVersion = true
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "db",
			Usage:  "PostgreSQL connection string or URL; empty uses the PG* environment",
			EnvVar: "GDBMAINT_DB",
		},
		cli.StringFlag{
			Name:   "config",
			Usage:  "YAML configuration file for logging and email",
			EnvVar: "AGSADMIN_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-file",
			Usage:  "append log lines to this file",
			EnvVar: "GDBMAINT_LOG_FILE",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "minimum level to log",
			EnvVar: "GDBMAINT_LOG_LEVEL",
		},
	}
	app.Action = func(c *cli.Context) error {
		code = maintain(ctx, c, stderr)
		return nil
	}
	if err := app.Run(args); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	return code
}

func maintain(ctx context.Context, c *cli.Context, stderr io.Writer) int {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}
	if c.IsSet("log-file") {
		cfg.Logging.File = c.String("log-file")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	logger, closer, err := cfg.NewLogger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer closer.Close()

	m, err := postgres.New(c.String("db"))
	if err != nil {
		logger.WithError(err).Error("could not open the geodatabase connection")
		return 1
	}
	defer m.Close()
	m.Logger = logger.WithField("run", uuid.NewV4().String())
	if _, err := m.Run(ctx); err != nil {
		return 1
	}
	return 0
}
