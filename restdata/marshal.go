// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"io"
	"reflect"

	"github.com/ugorji/go/codec"
)

// JSONHandle returns the codec handle used for every JSON document.
// Generic objects decode as map[string]interface{} so they can be
// re-encoded unchanged.
func JSONHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// Decode decodes a JSON document into out, which must be of pointer
// type.
func Decode(body []byte, out interface{}) error {
	decoder := codec.NewDecoderBytes(body, JSONHandle())
	return decoder.Decode(out)
}

// Encode writes the JSON encoding of in to w.
func Encode(w io.Writer, in interface{}) error {
	encoder := codec.NewEncoder(w, JSONHandle())
	return encoder.Encode(in)
}

// Marshal returns the JSON encoding of in.
func Marshal(in interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
