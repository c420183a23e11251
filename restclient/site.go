// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"net/url"

	"github.com/diffeo/agsadmin/restdata"
)

// CreateSite asks a freshly installed server to create a new site
// with the given primary administrator.  On a server that already has
// a site this fails with ags.ErrRemoteOperation.
func (c *Client) CreateSite(ctx context.Context, username, password string) error {
	params := url.Values{
		"username":              {username},
		"password":              {password},
		"configStoreConnection": {""},
		"directories":           {""},
		"runAsync":              {"false"},
	}
	return c.call(ctx, "createNewSite", c.Site.AdminPath("createNewSite"), params, nil)
}

// ExportSite writes a site backup into a directory on the server.
// location is interpreted by the server, not locally.
func (c *Client) ExportSite(ctx context.Context, location string) (restdata.ExportSiteResult, error) {
	var result restdata.ExportSiteResult
	params := url.Values{"location": {location}}
	err := c.call(ctx, "exportSite", c.Site.AdminPath("exportSite"), params, &result)
	return result, err
}

// ImportSite restores a site from a backup file on the server.  This
// blocks until the restore completes, which can take a long time.
func (c *Client) ImportSite(ctx context.Context, location string) (restdata.ImportSiteResult, error) {
	var result restdata.ImportSiteResult
	params := url.Values{"location": {location}}
	err := c.call(ctx, "importSite", c.Site.AdminPath("importSite"), params, &result)
	return result, err
}
