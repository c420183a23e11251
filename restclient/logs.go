// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/diffeo/agsadmin/restdata"
)

// DefaultPageSize is the largest number of log messages the admin API
// returns from one query.
const DefaultPageSize = 10000

// LogQuery describes a log search.  The admin API searches backwards
// in time, from Newest down to Oldest.
type LogQuery struct {
	// Level is the minimum log level, such as "FINE".
	Level string

	// Newest is the most recent time to include.
	Newest time.Time

	// Oldest is the earliest time to include.
	Oldest time.Time

	// Services restricts the search to these services, in
	// "<folder/>name.type" notation.  If empty, all services,
	// servers and machines are searched.
	Services []string

	// PageSize is the maximum number of messages to return.  Zero
	// means DefaultPageSize.
	PageSize int
}

// filter builds the JSON filter document for q.
func (q LogQuery) filter() (string, error) {
	var filter map[string]interface{}
	if len(q.Services) > 0 {
		filter = map[string]interface{}{"services": q.Services}
	} else {
		filter = map[string]interface{}{
			"services": "*",
			"server":   "*",
			"machines": "*",
		}
	}
	bytes, err := restdata.Marshal(filter)
	return string(bytes), err
}

// QueryLogs searches the server logs.
func (c *Client) QueryLogs(ctx context.Context, q LogQuery) (restdata.LogQueryResult, error) {
	var result restdata.LogQueryResult
	filter, err := q.filter()
	if err != nil {
		return result, err
	}
	level := q.Level
	if level == "" {
		level = "FINE"
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	params := url.Values{
		"level":     {level},
		"startTime": {msec(q.Newest)},
		"endTime":   {msec(q.Oldest)},
		"filter":    {filter},
		"pageSize":  {strconv.Itoa(pageSize)},
	}
	err = c.call(ctx, "queryLogs", c.Site.AdminPath("logs", "query"), params, &result)
	return result, err
}
