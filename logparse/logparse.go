// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package logparse recovers map requests from server log messages.
//
// A map service logs each drawn map at FINE level with a message such
// as
//
//     Extent:-118.5,33.7,-117.9,34.3;Size:800,600;Scale:577790.55
//
// The message is a ";"-separated list of "key:value" fields.  Spaces
// are insignificant.  Extent is required and holds exactly four
// numbers (minimum x, minimum y, maximum x, maximum y); Size holds
// exactly two (width and height in pixels) and Scale exactly one.
// Other fields are ignored whatever they hold, colons included.  A
// message that does not fit this grammar is rejected with
// ErrUnparseable.
package logparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExtentPrefix starts every map-extent log message.
const ExtentPrefix = "Extent:"

// ExtentRecord is one parsed map request.
type ExtentRecord struct {
	// Time is when the request was logged.  ParseExtent leaves this
	// zero; see ParseLogMessage.
	Time time.Time

	MinX, MinY, MaxX, MaxY float64

	// Width and Height are the image size in pixels, if HasSize.
	Width, Height float64
	HasSize       bool

	// Scale is the map scale denominator, if HasScale.
	Scale    float64
	HasScale bool
}

// InvScale returns 1/Scale.  The second return value is false if
// there is no usable scale.
func (r ExtentRecord) InvScale() (float64, bool) {
	if !r.HasScale || r.Scale == 0 {
		return 0, false
	}
	return 1 / r.Scale, true
}

// Centroid returns the center point of the extent.
func (r ExtentRecord) Centroid() (x, y float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

// ErrUnparseable is returned for a message that claims to be an
// extent message but does not follow the extent grammar.
type ErrUnparseable struct {
	// Message is the offending log message.
	Message string

	// Reason says what was wrong with it.
	Reason string
}

func (e ErrUnparseable) Error() string {
	return fmt.Sprintf("unparseable extent message %q: %s", e.Message, e.Reason)
}

// IsExtentMessage returns true if message looks like a map-extent
// message.  Only such messages should be passed to ParseExtent.
func IsExtentMessage(message string) bool {
	return strings.HasPrefix(message, ExtentPrefix)
}

// ParseLogMessage parses an extent message logged at timeMillis,
// milliseconds since the Unix epoch.
func ParseLogMessage(message string, timeMillis int64) (ExtentRecord, error) {
	record, err := ParseExtent(message)
	if err != nil {
		return record, err
	}
	record.Time = time.Unix(0, timeMillis*int64(time.Millisecond))
	return record, nil
}

// ParseExtent parses one extent message.
func ParseExtent(message string) (ExtentRecord, error) {
	var record ExtentRecord
	fail := func(format string, args ...interface{}) (ExtentRecord, error) {
		return ExtentRecord{}, ErrUnparseable{Message: message, Reason: fmt.Sprintf(format, args...)}
	}

	seen := make(map[string]bool)
	compact := strings.Replace(message, " ", "", -1)
	for _, field := range strings.Split(compact, ";") {
		if field == "" {
			continue
		}
		key, value, found := strings.Cut(field, ":")
		switch key {
		case "Extent", "Size", "Scale":
			if !found || strings.Contains(value, ":") {
				return fail("field %q is not key:value", field)
			}
		default:
			// other fields may hold times or URLs
			continue
		}
		if seen[key] {
			return fail("duplicate field %q", key)
		}
		seen[key] = true

		switch key {
		case "Extent":
			nums, err := numbers(value, 4)
			if err != nil {
				return fail("Extent: %v", err)
			}
			record.MinX, record.MinY, record.MaxX, record.MaxY = nums[0], nums[1], nums[2], nums[3]
			if record.MinX > record.MaxX || record.MinY > record.MaxY {
				return fail("Extent minimum exceeds maximum")
			}
		case "Size":
			nums, err := numbers(value, 2)
			if err != nil {
				return fail("Size: %v", err)
			}
			record.Width, record.Height = nums[0], nums[1]
			record.HasSize = true
		case "Scale":
			nums, err := numbers(value, 1)
			if err != nil {
				return fail("Scale: %v", err)
			}
			record.Scale = nums[0]
			record.HasScale = true
		}
	}
	if !seen["Extent"] {
		return fail("no Extent field")
	}
	return record, nil
}

// numbers parses a comma-separated list of exactly count numbers.
func numbers(value string, count int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != count {
		return nil, fmt.Errorf("expected %d values, got %d", count, len(parts))
	}
	result := make([]float64, count)
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p)
		}
		result[i] = f
	}
	return result, nil
}
