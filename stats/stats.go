// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package stats summarizes map draw times from server logs.
package stats

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/diffeo/agsadmin/restdata"
)

// DrawMessage is the log message a map service writes when it
// finishes drawing a map image.
const DrawMessage = "End ExportMapImage"

// Header is the first row of the CSV report.
var Header = []string{"Service", "Number of hits", "Average seconds per draw"}

// ServiceStats holds the totals for one service.
type ServiceStats struct {
	Service      string
	Hits         int
	TotalSeconds float64
}

// Average returns the mean draw time in seconds, or 0 if there were no
// hits.
func (s ServiceStats) Average() float64 {
	if s.Hits == 0 {
		return 0
	}
	return s.TotalSeconds / float64(s.Hits)
}

// Aggregator accumulates draw messages by source service.  The zero
// value is ready to use.
type Aggregator struct {
	byService map[string]*ServiceStats

	// Skipped counts draw messages with no usable elapsed time.
	Skipped int
}

// Add records one log message.  Returns true if it was a draw
// message that was counted.
func (a *Aggregator) Add(m restdata.LogMessage) bool {
	if m.Message != DrawMessage {
		return false
	}
	elapsed, ok := m.ElapsedSeconds()
	if !ok {
		a.Skipped++
		return false
	}
	if a.byService == nil {
		a.byService = make(map[string]*ServiceStats)
	}
	s := a.byService[m.Source]
	if s == nil {
		s = &ServiceStats{Service: m.Source}
		a.byService[m.Source] = s
	}
	s.Hits++
	s.TotalSeconds += elapsed
	return true
}

// AddAll records every message in a log query result.
func (a *Aggregator) AddAll(messages []restdata.LogMessage) {
	for _, m := range messages {
		a.Add(m)
	}
}

// Results returns the totals sorted by service name.
func (a *Aggregator) Results() []ServiceStats {
	result := make([]ServiceStats, 0, len(a.byService))
	for _, s := range a.byService {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Service < result[j].Service
	})
	return result
}

// WriteCSV writes the report: Header, then one row per service.
func WriteCSV(w io.Writer, stats []ServiceStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.Service,
			strconv.Itoa(s.Hits),
			strconv.FormatFloat(s.Average(), 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
