// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restclient"
	"github.com/sirupsen/logrus"
)

func init() {
	register(
		Command{
			Name:   "list",
			Usage:  "list every service and its state",
			Action: list,
		},
		lifecycle(restclient.Start, "start a service, or all services"),
		lifecycle(restclient.Stop, "stop a service, or all services"),
		lifecycle(restclient.Delete, "delete a service, or all services"),
		Command{
			Name:   "status",
			Args:   "[service]",
			Usage:  "fail if any service is stopped",
			Check:  checkOptionalService,
			Action: status,
		},
		Command{
			Name:    "permissions",
			Args:    "<service|folder> <principal>",
			Usage:   "fail if a principal has no permission on a service or folder",
			MinArgs: 2,
			Action:  permissions,
		},
	)
}

func list(ctx context.Context, env *Env, args []string) error {
	services, err := env.Client.ListServices(ctx)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		env.printf("No services found")
		return nil
	}
	env.printf("Services on %s:", env.Client.Site.Host)
	for _, service := range services {
		status, err := env.Client.ServiceStatus(ctx, service)
		if err != nil {
			return err
		}
		env.printf("  %s > %s", status.RealTimeState, service)
	}
	return nil
}

// checkService requires the first argument to name a service.
func checkService(args []string) error {
	if _, err := ags.ParseServiceRef(args[0]); err != nil {
		return ags.ErrUsage{Message: err.Error()}
	}
	return nil
}

func checkOptionalService(args []string) error {
	if len(args) == 0 || args[0] == "" {
		return nil
	}
	return checkService(args)
}

func checkServiceOrAll(args []string) error {
	if strings.EqualFold(args[0], "all") {
		return nil
	}
	return checkService(args)
}

// resolveServices expands a command argument into services: "all"
// means every listed service, anything else is a single service name.
func resolveServices(ctx context.Context, env *Env, arg string) ([]ags.ServiceRef, error) {
	if strings.EqualFold(arg, "all") {
		return env.Client.ListServices(ctx)
	}
	ref, err := ags.ParseServiceRef(arg)
	if err != nil {
		return nil, ags.ErrUsage{Message: err.Error()}
	}
	return []ags.ServiceRef{ref}, nil
}

func lifecycle(op restclient.Operation, usage string) Command {
	return Command{
		Name:    string(op),
		Args:    "<service|all>",
		Usage:   usage,
		MinArgs: 1,
		Check:   checkServiceOrAll,
		Action: func(ctx context.Context, env *Env, args []string) error {
			return operate(ctx, env, op, args[0])
		},
	}
}

// operate runs one lifecycle operation over one or all services.  A
// service that reports an error is skipped; any other error stops the
// batch.
func operate(ctx context.Context, env *Env, op restclient.Operation, arg string) error {
	services, err := resolveServices(ctx, env, arg)
	if err != nil {
		return err
	}
	var failed []string
	for _, service := range services {
		err := env.Client.Operate(ctx, service, op)
		if remote, isRemote := err.(ags.ErrRemoteOperation); isRemote {
			env.printf("Failed to perform operation. Returned message from the server:")
			for _, msg := range remote.Messages {
				env.printf("  %s", msg)
			}
			env.log().WithFields(logrus.Fields{
				"operation": string(op),
				"service":   service.String(),
				"messages":  remote.Messages,
			}).Warn("operation failed")
			failed = append(failed, service.String())
			continue
		}
		if err != nil {
			return err
		}
		env.printf("%s successfully performed on %s", op, service)
		env.log().WithFields(logrus.Fields{
			"operation": string(op),
			"service":   service.String(),
		}).Info("operation succeeded")
	}
	if len(failed) > 0 {
		return ags.ErrRemoteOperation{
			Operation: string(op),
			Messages: []string{fmt.Sprintf("%d of %d services failed: %s",
				len(failed), len(services), strings.Join(failed, ", "))},
		}
	}
	return nil
}

func status(ctx context.Context, env *Env, args []string) error {
	var services []ags.ServiceRef
	if len(args) > 0 && args[0] != "" {
		ref, err := ags.ParseServiceRef(args[0])
		if err != nil {
			return ags.ErrUsage{Message: err.Error()}
		}
		services = []ags.ServiceRef{ref}
	} else {
		var err error
		if services, err = env.Client.ListServices(ctx); err != nil {
			return err
		}
	}

	stopped := 0
	for _, service := range services {
		st, err := env.Client.ServiceStatus(ctx, service)
		if err != nil {
			return err
		}
		env.log().WithFields(logrus.Fields{
			"service": service.String(),
			"state":   st.RealTimeState,
		}).Debug("service status")
		if st.RealTimeState == ags.StateStopped {
			stopped++
		}
	}
	if stopped > 0 {
		return ags.ErrCheckFailed{
			Check:  "status",
			Detail: fmt.Sprintf("%d services are stopped...", stopped),
		}
	}
	env.printf("All services are running...")
	return nil
}

func permissions(ctx context.Context, env *Env, args []string) error {
	resource, principal := strings.Trim(args[0], "/"), args[1]
	perms, err := env.Client.Permissions(ctx, resource)
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		env.printf("No permissions set to the service or folder...")
		env.log().WithField("resource", resource).Warn("no permissions set")
		return nil
	}
	for _, p := range perms {
		if p.Principal == principal {
			env.printf("%s is applied to the service or folder...", principal)
			return nil
		}
	}
	return ags.ErrCheckFailed{
		Check:  "permissions",
		Detail: principal + " is not applied to the service or folder...",
	}
}
