// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package ops implements the agsadmin commands.  Each command is a
// thin procedure over restclient: Run looks the command up, checks
// its arguments, obtains one token, and calls the command's
// action.  Actions print progress for the operator to Env.Out and
// return errors instead of exiting.
package ops

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/config"
	"github.com/diffeo/agsadmin/restclient"
	"github.com/sirupsen/logrus"
)

// NotEnoughArguments is the usage error for a short command line.
const NotEnoughArguments = "Not enough arguments, use '/?' for help"

// Env is everything a command needs.
type Env struct {
	// Client talks to the site.
	Client *restclient.Client

	// Config holds the run settings.
	Config config.Config

	// Username and Password are the site administrator credentials.
	Username string
	Password string

	// Out receives operator messages.
	Out io.Writer

	// Log receives structured log entries.
	Log logrus.FieldLogger

	// Clock is the time source for log query windows.
	Clock clock.Clock
}

func (env *Env) printf(format string, args ...interface{}) {
	fmt.Fprintf(env.Out, format+"\n", args...)
}

func (env *Env) now() time.Time {
	if env.Clock == nil {
		return time.Now()
	}
	return env.Clock.Now()
}

func (env *Env) log() logrus.FieldLogger {
	if env.Log == nil {
		return logrus.StandardLogger()
	}
	return env.Log
}

// authenticate gets a token unless the client already has one.
func (env *Env) authenticate(ctx context.Context) error {
	if env.Client.Token() != "" {
		return nil
	}
	token, err := env.Client.Authenticate(ctx, env.Username, env.Password)
	if err != nil {
		return err
	}
	env.log().WithFields(logrus.Fields{
		"host":    env.Client.Site.Host,
		"expires": token.Expires,
	}).Debug("authenticated")
	return nil
}

// Command is one agsadmin command.
type Command struct {
	// Name is the command word.
	Name string

	// Args summarizes the arguments, for help text.
	Args string

	// Usage is a one-line description.
	Usage string

	// MinArgs is the number of required arguments.
	MinArgs int

	// Anonymous commands are run without a token and must
	// authenticate themselves if they need to.
	Anonymous bool

	// Check, if set, validates the arguments before a token is
	// requested.  It returns ags.ErrUsage for a bad command line.
	Check func(args []string) error

	// Action runs the command with its arguments.
	Action func(ctx context.Context, env *Env, args []string) error
}

var commands = map[string]Command{}

func register(cmds ...Command) {
	for _, cmd := range cmds {
		commands[strings.ToLower(cmd.Name)] = cmd
	}
}

// Lookup finds a command by name, ignoring case.
func Lookup(name string) (Command, bool) {
	cmd, ok := commands[strings.ToLower(name)]
	return cmd, ok
}

// Commands returns every command, sorted by name.
func Commands() []Command {
	result := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Run runs the command line args, which start with the command name.
// Usage problems are reported as ags.ErrUsage before anything is sent
// to the site.
func Run(ctx context.Context, env *Env, args []string) error {
	if len(args) == 0 {
		return ags.ErrUsage{Message: NotEnoughArguments}
	}
	cmd, ok := Lookup(args[0])
	if !ok {
		return ags.ErrUsage{Message: fmt.Sprintf("Unknown command: %s, use '/?' for help", args[0])}
	}
	args = args[1:]
	if len(args) < cmd.MinArgs {
		return ags.ErrUsage{Message: NotEnoughArguments}
	}

	if cmd.Check != nil {
		if err := cmd.Check(args); err != nil {
			return err
		}
	}

	log := env.log().WithField("command", cmd.Name)
	log.WithField("args", strings.Join(args, " ")).Debug("running")
	if !cmd.Anonymous {
		if err := env.authenticate(ctx); err != nil {
			return err
		}
	}
	return cmd.Action(ctx, env, args)
}

// Usage writes the help text.
func Usage(w io.Writer, program string) {
	fmt.Fprintf(w, "%s provides a way to script ArcGIS Server administrative tasks.\n", program)
	fmt.Fprintf(w, "Note that all admin usernames and passwords are sent in clear text unless the site uses https.\n\n")
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s [options] server port adminUser adminPass command [args...]\n", program)
	fmt.Fprintf(w, "  %s [options] --site URL adminUser adminPass command [args...]\n\n", program)
	fmt.Fprintf(w, "Commands:\n")
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, cmd := range Commands() {
		fmt.Fprintf(tw, "  %s %s\t%s\n", cmd.Name, cmd.Args, cmd.Usage)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nThe 'all' keyword can be used in place of a service name to stop, start or delete all services.\n\n")
	fmt.Fprintf(w, "e.g. %s myServer 6080 admin p@$$w0rd list\n", program)
	fmt.Fprintf(w, "e.g. %s myServer 6080 admin p@$$w0rd start ForestCover.MapServer\n", program)
	fmt.Fprintf(w, "e.g. %s myServer 6080 admin p@$$w0rd stop all\n", program)
}
