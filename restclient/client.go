// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient talks to the admin and REST APIs of one ArcGIS
// Server site.  Create a client for the site, get a token, then call
// the typed operations:
//
//     site, err := ags.ParseSite("https://gis.example.com:6443/arcgis")
//     c := restclient.New(site)
//     _, err = c.Authenticate(ctx, "admin", "secret")
//     services, err := c.ListServices(ctx)
//
// Every call is a single form-encoded POST.  Nothing is retried, and
// connections are not reused between calls.
package restclient

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/agsadmin/ags"
	"github.com/sirupsen/logrus"
)

// DefaultReferer is sent as the token referer and HTTP Referer header
// unless Client.Referer is changed.
const DefaultReferer = "agsadmin"

// DefaultTokenExpiration is the token lifetime requested from the
// server.
const DefaultTokenExpiration = 60 * time.Minute

// Client is a connection description for one site.  It is not safe
// for concurrent use; the tools using it are single-threaded.
type Client struct {
	// Site is the server this client talks to.
	Site ags.Site

	// Referer identifies this client to the token service.
	Referer string

	// AdminToken requests tokens from the admin API's own
	// generateToken endpoint instead of the token service.
	AdminToken bool

	// TokenExpiration is the requested token lifetime.
	TokenExpiration time.Duration

	// HTTPClient performs the actual requests.
	HTTPClient *http.Client

	// Clock is the time source for token expiry.
	Clock clock.Clock

	// Logger receives per-request debug logging.
	Logger logrus.FieldLogger

	token string
}

// New creates a client for site with default settings.
func New(site ags.Site) *Client {
	return NewWithClock(site, clock.New())
}

// NewWithClock creates a client for site using an explicit time
// source.  Most application code should call New(); this is intended
// for tests that need a mock clock.
func NewWithClock(site ags.Site, clk clock.Clock) *Client {
	return &Client{
		Site:            site,
		Referer:         DefaultReferer,
		TokenExpiration: DefaultTokenExpiration,
		HTTPClient:      NewHTTPClient(0, false),
		Clock:           clk,
		Logger:          logrus.StandardLogger(),
	}
}

// NewHTTPClient builds an HTTP client that opens a fresh connection
// for every request.  A zero timeout means no timeout.  If insecure
// is true, server certificates are not verified, which is common
// for sites using self-signed certificates.
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// SetToken sets the token attached to every following call.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the token currently attached to calls, or "".
func (c *Client) Token() string {
	return c.token
}
