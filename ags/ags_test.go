// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServiceRef(t *testing.T) {
	tests := []struct {
		in   string
		want ServiceRef
		rest string
	}{
		{"Map.MapServer", ServiceRef{"", "Map", "MapServer"}, "Map/MapServer"},
		{"Base/Streets.MapServer", ServiceRef{"Base", "Streets", "MapServer"}, "Base/Streets/MapServer"},
		{"/Base/Find.v2.GeocodeServer/", ServiceRef{"Base", "Find.v2", "GeocodeServer"}, "Base/Find.v2/GeocodeServer"},
	}
	for _, test := range tests {
		ref, err := ParseServiceRef(test.in)
		if assert.NoError(t, err, test.in) {
			assert.Equal(t, test.want, ref)
			assert.Equal(t, test.rest, ref.RESTPath())
		}
	}
}

func TestParseServiceRefRoundTrip(t *testing.T) {
	for _, s := range []string{"Map.MapServer", "Base/Streets.MapServer"} {
		ref, err := ParseServiceRef(s)
		if assert.NoError(t, err) {
			assert.Equal(t, s, ref.String())
		}
	}
}

func TestParseServiceRefBad(t *testing.T) {
	for _, s := range []string{"", "Map", ".MapServer", "Map.", "Folder/"} {
		_, err := ParseServiceRef(s)
		assert.Error(t, err, s)
	}
}

func TestIsReservedFolder(t *testing.T) {
	assert.True(t, IsReservedFolder("System"))
	assert.True(t, IsReservedFolder("utilities"))
	assert.False(t, IsReservedFolder("Base"))
	assert.False(t, IsReservedFolder(""))
}
