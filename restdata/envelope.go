// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"fmt"

	"github.com/diffeo/agsadmin/ags"
	"github.com/mitchellh/mapstructure"
)

// StatusError is the envelope status value that marks a failed call.
const StatusError = "error"

// Envelope is the status wrapper common to every response.
type Envelope struct {
	// Status is the "status" field, or "" if there was none.
	Status string

	// Messages holds the server messages in the order they were
	// sent.
	Messages []string

	// Code is the numeric error code, if any.
	Code int
}

// Failed returns true if the envelope reports an error.
func (e Envelope) Failed() bool {
	return e.Status == StatusError
}

// ErrorEnvelope builds the document the admin API sends for a failed
// call.
func ErrorEnvelope(code int, messages ...string) map[string]interface{} {
	if messages == nil {
		messages = []string{}
	}
	return map[string]interface{}{
		"status":   StatusError,
		"messages": messages,
		"code":     code,
	}
}

// ParseEnvelope parses body as JSON and extracts its status envelope.
// If body is not JSON at all, returns ags.ErrMalformedResponse.  A
// well-formed body that is not an object, or an object without a
// "status" or "error" field, is a successful envelope.
func ParseEnvelope(body []byte) (Envelope, error) {
	var doc interface{}
	if err := Decode(body, &doc); err != nil {
		return Envelope{}, ags.ErrMalformedResponse{Body: string(body), Err: err}
	}

	env := Envelope{}
	if status, ok := lookup(doc, "status"); ok && status != nil {
		env.Status = fmt.Sprint(status)
		env.Messages = stringList(lookupOrNil(doc, "messages"))
		env.Code = toInt(lookupOrNil(doc, "code"))
		if env.Failed() {
			return env, nil
		}
	}

	// The REST and token endpoints report errors as an "error"
	// object instead
	if restErr, ok := lookup(doc, "error"); ok && restErr != nil {
		env.Status = StatusError
		env.Messages = nil
		if s, isString := restErr.(string); isString {
			env.Messages = []string{s}
			return env, nil
		}
		if msg, ok := lookup(restErr, "message"); ok && msg != nil {
			env.Messages = append(env.Messages, fmt.Sprint(msg))
		}
		env.Messages = append(env.Messages, stringList(lookupOrNil(restErr, "details"))...)
		env.Code = toInt(lookupOrNil(restErr, "code"))
	}
	return env, nil
}

// lookup finds key in a decoded JSON object.  It returns false if obj
// is not an object or does not contain key.
func lookup(obj interface{}, key string) (interface{}, bool) {
	switch m := obj.(type) {
	case map[string]interface{}:
		v, ok := m[key]
		return v, ok
	case map[interface{}]interface{}:
		v, ok := m[key]
		return v, ok
	}
	return nil, false
}

func lookupOrNil(obj interface{}, key string) interface{} {
	v, _ := lookup(obj, key)
	return v
}

// stringList converts a decoded JSON value into a list of strings.
// A list yields one string per element; a scalar yields a single
// string; nil yields nothing.
func stringList(v interface{}) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case []interface{}:
		result := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, isString := item.(string); isString {
				result = append(result, s)
			} else {
				result = append(result, fmt.Sprint(item))
			}
		}
		return result
	case []string:
		return vv
	case string:
		return []string{vv}
	default:
		return []string{fmt.Sprint(vv)}
	}
}

func toInt(v interface{}) int {
	var i int
	if v == nil {
		return 0
	}
	if err := mapstructure.WeakDecode(v, &i); err != nil {
		return 0
	}
	return i
}
