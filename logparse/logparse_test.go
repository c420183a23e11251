// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package logparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFull(t *testing.T) {
	r, err := ParseExtent("Extent:-118.5,33.7,-117.9,34.3;Size:800,600;Scale:500000")
	if assert.NoError(t, err) {
		assert.Equal(t, -118.5, r.MinX)
		assert.Equal(t, 33.7, r.MinY)
		assert.Equal(t, -117.9, r.MaxX)
		assert.Equal(t, 34.3, r.MaxY)
		assert.True(t, r.HasSize)
		assert.Equal(t, 800.0, r.Width)
		assert.Equal(t, 600.0, r.Height)
		assert.True(t, r.HasScale)
		inv, ok := r.InvScale()
		assert.True(t, ok)
		assert.Equal(t, 1/500000.0, inv)
		assert.True(t, r.Time.IsZero())
	}
}

func TestParseSpacesAndExtras(t *testing.T) {
	r, err := ParseExtent("Extent: 0, 0, 10, 20 ; Rotation:0;")
	if assert.NoError(t, err) {
		assert.Equal(t, 10.0, r.MaxX)
		assert.Equal(t, 20.0, r.MaxY)
		assert.False(t, r.HasSize)
		assert.False(t, r.HasScale)
		_, ok := r.InvScale()
		assert.False(t, ok)
		x, y := r.Centroid()
		assert.Equal(t, 5.0, x)
		assert.Equal(t, 10.0, y)
	}
}

func TestParseUnknownFieldsWithColons(t *testing.T) {
	r, err := ParseExtent("Extent:1,2,3,4;Time:12:30:00;Url:http://gis/arcgis;Rotation;Scale:500")
	if assert.NoError(t, err) {
		assert.Equal(t, 4.0, r.MaxY)
		assert.True(t, r.HasScale)
		assert.Equal(t, 500.0, r.Scale)
	}
}

func TestParseErrors(t *testing.T) {
	for _, msg := range []string{
		"Extent:1,2,3",
		"Extent:1,2,3,x",
		"Extent:5,0,1,1",
		"Size:800,600",
		"Extent:0,0,1,1;Size:800",
		"Extent:0,0,1,1;Scale:",
		"Extent:0,0,1,1;Scale:1:2",
		"Extent:0,0,1,1:2;Size:1,1",
		"Extent;Scale:1",
		"Extent:0,0,1,1;Extent:0,0,2,2",
	} {
		_, err := ParseExtent(msg)
		if assert.Error(t, err, msg) {
			assert.IsType(t, ErrUnparseable{}, err, msg)
			assert.Equal(t, msg, err.(ErrUnparseable).Message)
		}
	}
}

func TestParseLogMessage(t *testing.T) {
	r, err := ParseLogMessage("Extent:0,0,1,1", 1500000000123)
	if assert.NoError(t, err) {
		assert.Equal(t, time.Unix(1500000000, 123000000), r.Time)
	}
}

func TestIsExtentMessage(t *testing.T) {
	assert.True(t, IsExtentMessage("Extent:0,0,1,1"))
	assert.False(t, IsExtentMessage("End ExportMapImage"))
	assert.False(t, IsExtentMessage(" Extent:0,0,1,1"))
}
