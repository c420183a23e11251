// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
)

// Operation is a service lifecycle operation.
type Operation string

// The lifecycle operations the admin API supports on a service.
const (
	Start  Operation = "start"
	Stop   Operation = "stop"
	Delete Operation = "delete"
)

// ParseOperation converts a command name into an Operation.
func ParseOperation(s string) (Operation, bool) {
	switch op := Operation(s); op {
	case Start, Stop, Delete:
		return op, true
	}
	return "", false
}

// ListFolder lists the services and subfolders in one folder.  An
// empty folder lists the site root.
func (c *Client) ListFolder(ctx context.Context, folder string) (restdata.ServiceList, error) {
	var list restdata.ServiceList
	err := c.call(ctx, "listServices", c.Site.AdminPath("services", folder), nil, &list)
	return list, err
}

// ListServices lists every service at the site root and in every
// folder except the reserved System and Utilities folders.  The
// reserved folders are never queried.
func (c *Client) ListServices(ctx context.Context) ([]ags.ServiceRef, error) {
	root, err := c.ListFolder(ctx, "")
	if err != nil {
		return nil, err
	}
	var services []ags.ServiceRef
	for _, s := range root.Services {
		services = append(services, ags.ServiceRef{Name: s.ServiceName, Type: s.Type})
	}
	for _, folder := range root.Folders {
		if ags.IsReservedFolder(folder) {
			continue
		}
		list, err := c.ListFolder(ctx, folder)
		if err != nil {
			return nil, err
		}
		for _, s := range list.Services {
			services = append(services, ags.ServiceRef{
				Folder: folder,
				Name:   s.ServiceName,
				Type:   s.Type,
			})
		}
	}
	return services, nil
}

// ServiceStatus gets the configured and real-time state of a service.
func (c *Client) ServiceStatus(ctx context.Context, service ags.ServiceRef) (restdata.ServiceStatus, error) {
	var status restdata.ServiceStatus
	err := c.call(ctx, "serviceStatus", c.Site.AdminPath("services", service.String(), "status"), nil, &status)
	return status, err
}

// Operate starts, stops or deletes a service.
func (c *Client) Operate(ctx context.Context, service ags.ServiceRef, op Operation) error {
	return c.call(ctx, string(op), c.Site.AdminPath("services", service.String(), string(op)), nil, nil)
}

// Permissions lists the permissions applied to a service or folder.
// resource is either "<folder/>name.type" or a folder name.
func (c *Client) Permissions(ctx context.Context, resource string) ([]restdata.Permission, error) {
	var list restdata.PermissionList
	err := c.call(ctx, "permissions", c.Site.AdminPath("services", resource, "permissions"), nil, &list)
	return list.Permissions, err
}
