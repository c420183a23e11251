// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ags

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// PortUnspecified is the Site.Port value when the site URL did not
// name a port.  Callers should use Site.EffectivePort() to get the
// protocol default.
const PortUnspecified = -1

// DefaultContext is the context path used when the site URL has no
// path of its own.
const DefaultContext = "/arcgis"

// Site describes the location of an ArcGIS Server site.  This
// implements the flag.Value interface, so a typical use is
//
//     site := ags.Site{}
//     flag.Var(&site, "site", "http(s)://host:port/arcgis")
//     flag.Parse()
type Site struct {
	// Protocol is either "http" or "https".
	Protocol string

	// Host is the server host name, without a port.
	Host string

	// Port is the explicit port number, or PortUnspecified.
	Port int

	// Context is the context path of the site, such as "/arcgis"
	// or "/arcgis/admin".
	Context string
}

// ParseSite splits a site URL into its parts.  A missing scheme
// defaults to http, a missing path to DefaultContext, and a missing
// port to PortUnspecified.
func ParseSite(siteURL string) (Site, error) {
	s := strings.TrimSpace(siteURL)
	if s == "" {
		return Site{}, ErrInvalidSiteURL{URL: siteURL, Reason: "empty URL"}
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Site{}, ErrInvalidSiteURL{URL: siteURL, Reason: err.Error()}
	}

	site := Site{
		Protocol: strings.ToLower(u.Scheme),
		Host:     u.Hostname(),
		Port:     PortUnspecified,
		Context:  u.Path,
	}
	switch site.Protocol {
	case "http", "https":
	default:
		return Site{}, ErrInvalidSiteURL{URL: siteURL, Reason: "unsupported scheme " + u.Scheme}
	}
	if site.Host == "" {
		return Site{}, ErrInvalidSiteURL{URL: siteURL, Reason: "no host"}
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Site{}, ErrInvalidSiteURL{URL: siteURL, Reason: "bad port " + p}
		}
		site.Port = port
	}
	if site.Context == "" || site.Context == "/" {
		site.Context = DefaultContext
	}
	return site, nil
}

// EffectivePort returns the port to connect to, applying the protocol
// default when no port was given.
func (s Site) EffectivePort() int {
	if s.Port != PortUnspecified && s.Port != 0 {
		return s.Port
	}
	if s.Protocol == "https" {
		return 443
	}
	return 80
}

// Address returns the host:port pair to dial.
func (s Site) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.EffectivePort()))
}

// Root returns the context path with any trailing slash and "/admin"
// removed, so "/arcgis/admin/" becomes "/arcgis".
func (s Site) Root() string {
	root := strings.TrimRight(s.Context, "/")
	root = strings.TrimSuffix(root, "/admin")
	return root
}

// AdminPath builds a path under the admin API, such as
// AdminPath("services", "Map.MapServer", "stop").
func (s Site) AdminPath(elems ...string) string {
	return s.join("admin", elems)
}

// RESTPath builds a path under the REST services directory, such as
// RESTPath("Map", "MapServer").
func (s Site) RESTPath(elems ...string) string {
	return s.join("rest/services", elems)
}

// TokenPath returns the token generation path.  If admin is true this
// is the admin API token endpoint, otherwise it is the token service.
func (s Site) TokenPath(admin bool) string {
	if admin {
		return s.AdminPath("generateToken")
	}
	return s.join("tokens", []string{"generateToken"})
}

func (s Site) join(prefix string, elems []string) string {
	parts := []string{s.Root(), prefix}
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

// String renders the site as a URL.
func (s Site) String() string {
	if s.Host == "" {
		return ""
	}
	host := s.Host
	if s.Port != PortUnspecified && s.Port != 0 {
		host = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	}
	return s.Protocol + "://" + host + s.Context
}

// Set parses a site URL into an existing site description.  This is
// part of the flag.Value interface.
func (s *Site) Set(param string) error {
	site, err := ParseSite(param)
	if err != nil {
		return err
	}
	*s = site
	return nil
}
