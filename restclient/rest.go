// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides the generic request code: one POST, one
// response, classified into the ags error types.

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/jtacoma/uritemplates"
	"github.com/sirupsen/logrus"
)

// Response is the raw result of one POST.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body holds the complete response body.
	Body []byte
}

// segmentTemplate expands one path segment with every reserved
// character percent-encoded.
var segmentTemplate = mustParseTemplate("{segment}")

func mustParseTemplate(template string) *uritemplates.UriTemplate {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// EscapePath percent-encodes each segment of a slash-separated path,
// so that folder and service names containing spaces or other special
// characters survive the trip.
func EscapePath(path string) (string, error) {
	var parts []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		expanded, err := segmentTemplate.Expand(map[string]interface{}{"segment": segment})
		if err != nil {
			return "", err
		}
		parts = append(parts, expanded)
	}
	return "/" + strings.Join(parts, "/"), nil
}

// URL returns the full URL for a site path.
func (c *Client) URL(path string) (string, error) {
	escaped, err := EscapePath(path)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: c.Site.Protocol,
		Host:   c.Site.Address(),
	}
	return u.String() + escaped, nil
}

// Post sends params to path as a form-encoded POST and returns the
// raw response.  The only error returned is ags.ErrConnectionFailed;
// interpreting the status and body is left to the caller.
func (c *Client) Post(ctx context.Context, path string, params url.Values) (*Response, error) {
	start := c.now()
	resp, err := c.post(ctx, path, params)
	if err != nil {
		c.observe("post", outcomeConnection, start)
		return nil, err
	}
	c.observe("post", outcomeSent, start)
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, params url.Values) (*Response, error) {
	connErr := func(err error) error {
		return ags.ErrConnectionFailed{
			Host: c.Site.Host,
			Port: c.Site.EffectivePort(),
			Err:  err,
		}
	}

	target, err := c.URL(path)
	if err != nil {
		return nil, connErr(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, connErr(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/plain")
	if c.Referer != "" {
		req.Header.Set("Referer", c.Referer)
	}

	c.logger().WithFields(logrus.Fields{
		"url": target,
	}).Debug("posting")

	httpResp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, connErr(err)
	}
	defer httpResp.Body.Close()
	body, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		return nil, connErr(err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
}

// call performs an admin call with the client's token attached,
// checks the HTTP status and envelope, and decodes the body into out
// if out is non-nil.
func (c *Client) call(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	start := c.now()
	resp, err := c.post(ctx, path, c.withDefaults(params))
	if err != nil {
		c.observe(op, outcomeConnection, start)
		return err
	}

	if resp.StatusCode != http.StatusOK {
		c.observe(op, outcomeRemote, start)
		return ags.ErrRemoteOperation{
			Operation: op,
			Status:    resp.StatusCode,
			Messages:  bodyMessages(resp.Body),
		}
	}

	env, err := restdata.ParseEnvelope(resp.Body)
	if err != nil {
		c.observe(op, outcomeMalformed, start)
		return err
	}
	if env.Failed() {
		c.observe(op, outcomeRemote, start)
		return ags.ErrRemoteOperation{
			Operation: op,
			Status:    resp.StatusCode,
			Messages:  env.Messages,
		}
	}

	if out != nil {
		if err := restdata.Decode(resp.Body, out); err != nil {
			c.observe(op, outcomeMalformed, start)
			return ags.ErrMalformedResponse{Body: string(resp.Body), Err: err}
		}
	}
	c.observe(op, outcomeSuccess, start)
	return nil
}

// withDefaults returns a copy of params with the response format and
// token filled in.
func (c *Client) withDefaults(params url.Values) url.Values {
	result := url.Values{}
	for k, v := range params {
		result[k] = append([]string(nil), v...)
	}
	if result.Get("f") == "" {
		result.Set("f", "json")
	}
	if c.token != "" && result.Get("token") == "" {
		result.Set("token", c.token)
	}
	return result
}

// bodyMessages extracts something readable from a failed response:
// the envelope messages if there are any, otherwise the body text.
func bodyMessages(body []byte) []string {
	if env, err := restdata.ParseEnvelope(body); err == nil && len(env.Messages) > 0 {
		return env.Messages
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	return []string{text}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c *Client) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// msec renders t as milliseconds since the Unix epoch, the time
// format of the admin API.
func msec(t time.Time) string {
	return strconv.FormatInt(t.UnixNano()/int64(time.Millisecond), 10)
}
