// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ags

import (
	"fmt"
	"strings"
)

// ErrInvalidSiteURL is returned from ParseSite() when a site URL cannot
// be broken into a protocol, host, port and context path.
type ErrInvalidSiteURL struct {
	URL    string
	Reason string
}

func (err ErrInvalidSiteURL) Error() string {
	return fmt.Sprintf("invalid site URL %q (%s): the ArcGIS Server site URL should be in the format http(s)://<host>:<port>/arcgis",
		err.URL, err.Reason)
}

// ErrConnectionFailed is returned when the server could not be reached
// at all, for instance a refused connection or a DNS failure.
type ErrConnectionFailed struct {
	Host string
	Port int
	Err  error
}

func (err ErrConnectionFailed) Error() string {
	return fmt.Sprintf("unable to connect to the ArcGIS Server site on %s port %d: %v",
		err.Host, err.Port, err.Err)
}

func (err ErrConnectionFailed) Unwrap() error {
	return err.Err
}

// ErrAuthenticationFailed is returned by the token provider when the
// server refuses to issue a token.
type ErrAuthenticationFailed struct {
	// Status is the HTTP status code of the token response.
	Status int

	// Messages holds any messages the server sent back, in order.
	Messages []string
}

func (err ErrAuthenticationFailed) Error() string {
	msg := "error while generating the token, check the username and password"
	if err.Status != 0 && err.Status != 200 {
		msg += fmt.Sprintf(" (HTTP %d)", err.Status)
	}
	if len(err.Messages) > 0 {
		msg += ": " + strings.Join(err.Messages, "; ")
	}
	return msg
}

// ErrMalformedResponse is returned when a response body is not the
// JSON document the server should have sent.
type ErrMalformedResponse struct {
	Body string
	Err  error
}

func (err ErrMalformedResponse) Error() string {
	body := err.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("malformed response from server: %v: %q", err.Err, body)
}

func (err ErrMalformedResponse) Unwrap() error {
	return err.Err
}

// ErrRemoteOperation is returned when the server answers an admin
// call with a non-200 status or an error envelope.
type ErrRemoteOperation struct {
	Operation string
	Status    int
	Messages  []string
}

func (err ErrRemoteOperation) Error() string {
	msg := err.Operation + " failed"
	if err.Status != 0 && err.Status != 200 {
		msg += fmt.Sprintf(" (HTTP %d)", err.Status)
	}
	if len(err.Messages) > 0 {
		msg += ": " + strings.Join(err.Messages, "; ")
	}
	return msg
}

// ErrLocalIO is returned when a local file or dataset cannot be
// created or written.
type ErrLocalIO struct {
	Path string
	Err  error
}

func (err ErrLocalIO) Error() string {
	return fmt.Sprintf("unable to use %s: %v", err.Path, err.Err)
}

func (err ErrLocalIO) Unwrap() error {
	return err.Err
}

// ErrCheckFailed is returned by the availability and permission
// checks when the site is reachable but not in the expected state.
type ErrCheckFailed struct {
	Check  string
	Detail string
}

func (err ErrCheckFailed) Error() string {
	return err.Check + " check failed: " + err.Detail
}

// ErrUsage is returned when a command is invoked with missing or
// invalid arguments.  Commands check their arguments before
// authenticating, so no remote call has been made when this is
// returned.
type ErrUsage struct {
	Message string
}

func (err ErrUsage) Error() string {
	return err.Message
}
