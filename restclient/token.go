// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/sirupsen/logrus"
)

// Token is a short-lived credential for one site.  It is held in
// memory only.
type Token struct {
	// Value is the token string sent with each call.
	Value string

	// Expires is when the server will stop accepting the token, or
	// the zero time if the server did not say.
	Expires time.Time
}

// Expired returns true if the token has expired at time now.
func (t Token) Expired(now time.Time) bool {
	return !t.Expires.IsZero() && !now.Before(t.Expires)
}

// GenerateToken exchanges a username and password for a token.  It
// does not change the token the client attaches to calls; see
// Authenticate().
//
// Returns ags.ErrConnectionFailed if the site cannot be reached and
// ags.ErrAuthenticationFailed if the server refuses to issue a token.
func (c *Client) GenerateToken(ctx context.Context, username, password string) (Token, error) {
	expiration := c.TokenExpiration
	if expiration <= 0 {
		expiration = DefaultTokenExpiration
	}
	referer := c.Referer
	if referer == "" {
		referer = DefaultReferer
	}
	params := url.Values{
		"username":   {username},
		"password":   {password},
		"client":     {"referer"},
		"referer":    {referer},
		"expiration": {strconv.Itoa(int(expiration / time.Minute))},
		"f":          {"json"},
	}

	start := c.now()
	resp, err := c.post(ctx, c.Site.TokenPath(c.AdminToken), params)
	if err != nil {
		c.observe("generateToken", outcomeConnection, start)
		return Token{}, err
	}
	if resp.StatusCode != http.StatusOK {
		c.observe("generateToken", outcomeAuth, start)
		return Token{}, ags.ErrAuthenticationFailed{
			Status:   resp.StatusCode,
			Messages: bodyMessages(resp.Body),
		}
	}

	env, err := restdata.ParseEnvelope(resp.Body)
	if err != nil {
		c.observe("generateToken", outcomeMalformed, start)
		return Token{}, err
	}
	if env.Failed() {
		c.observe("generateToken", outcomeAuth, start)
		return Token{}, ags.ErrAuthenticationFailed{
			Status:   resp.StatusCode,
			Messages: env.Messages,
		}
	}

	var tokenResp restdata.TokenResponse
	if err := restdata.Decode(resp.Body, &tokenResp); err != nil {
		c.observe("generateToken", outcomeMalformed, start)
		return Token{}, ags.ErrMalformedResponse{Body: string(resp.Body), Err: err}
	}
	if tokenResp.Token == "" {
		c.observe("generateToken", outcomeAuth, start)
		return Token{}, ags.ErrAuthenticationFailed{
			Status:   resp.StatusCode,
			Messages: []string{"no token in response"},
		}
	}
	c.observe("generateToken", outcomeSuccess, start)

	token := Token{Value: tokenResp.Token}
	if tokenResp.Expires > 0 {
		token.Expires = time.Unix(0, tokenResp.Expires*int64(time.Millisecond))
	}
	c.logger().WithFields(logrus.Fields{
		"host":    c.Site.Host,
		"expires": token.Expires,
	}).Debug("generated token")
	return token, nil
}

// Authenticate generates a token and attaches it to every following
// call made through c.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Token, error) {
	token, err := c.GenerateToken(ctx, username, password)
	if err != nil {
		return Token{}, err
	}
	c.SetToken(token.Value)
	return token, nil
}
