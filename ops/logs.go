// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ops

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/dataset"
	"github.com/diffeo/agsadmin/logparse"
	"github.com/diffeo/agsadmin/restclient"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/diffeo/agsadmin/stats"
	"github.com/sirupsen/logrus"
)

func init() {
	register(
		Command{
			Name:    "logFC",
			Args:    "<mapService> <dataset> <layer> [grid|None]",
			Usage:   "collect map request extents from the logs into a dataset",
			MinArgs: 3,
			Check:   checkService,
			Action:  logFC,
		},
		Command{
			Name:    "serviceStats",
			Args:    "<report>",
			Usage:   "write map draw counts and times per service to a CSV file",
			MinArgs: 1,
			Action:  serviceStats,
		},
	)
}

// queryLogs fetches FINE log messages for the configured window
// ending now.  If services is empty, every service is searched.
func queryLogs(ctx context.Context, env *Env, services []string) (restdata.LogQueryResult, error) {
	now := env.now()
	env.printf("Accessing Logs...")
	result, err := env.Client.QueryLogs(ctx, restclient.LogQuery{
		Level:    "FINE",
		Newest:   now,
		Oldest:   now.Add(-env.Config.LogWindow),
		Services: services,
		PageSize: env.Config.PageSize,
	})
	if err != nil {
		env.printf("  Error returned by operation.")
		return result, err
	}
	env.printf("  Operation completed successfully!")
	if result.HasMore {
		env.log().WithField("messages", len(result.LogMessages)).
			Warn("more log messages are available than one query returns; results are incomplete")
	}
	return result, nil
}

// fullExtent fetches the full extent of a map service, which must
// carry a spatial reference.
func fullExtent(ctx context.Context, env *Env, service ags.ServiceRef) (restdata.Extent, error) {
	info, err := env.Client.ServiceInfo(ctx, service)
	if err != nil {
		return restdata.Extent{}, err
	}
	if info.FullExtent == nil {
		return restdata.Extent{}, ags.ErrRemoteOperation{
			Operation: "serviceInfo",
			Messages:  []string{fmt.Sprintf("Unable to find Extent detail for '%s'!", service)},
		}
	}
	if info.FullExtent.SpatialReference == nil {
		return restdata.Extent{}, ags.ErrRemoteOperation{
			Operation: "serviceInfo",
			Messages:  []string{fmt.Sprintf("Unable to find Spatial Reference for '%s'!", service)},
		}
	}
	return *info.FullExtent, nil
}

func openDataset(env *Env, path string) (*dataset.Store, error) {
	if env.Clock != nil {
		return dataset.OpenWithClock(path, env.Clock)
	}
	return dataset.Open(path)
}

func logFC(ctx context.Context, env *Env, args []string) error {
	service, err := ags.ParseServiceRef(args[0])
	if err != nil {
		return ags.ErrUsage{Message: err.Error()}
	}
	datasetPath, layer := args[1], args[2]
	gridPath := ""
	if len(args) > 3 && !strings.EqualFold(args[3], "None") {
		gridPath = args[3]
	}

	extent, err := fullExtent(ctx, env, service)
	if err != nil {
		return err
	}
	logs, err := queryLogs(ctx, env, []string{service.String()})
	if err != nil {
		return err
	}

	store, err := openDataset(env, datasetPath)
	if err != nil {
		return err
	}
	defer store.Close()
	localErr := func(err error) error {
		return ags.ErrLocalIO{Path: datasetPath, Err: err}
	}

	env.printf("Creating output feature class...")
	if err := store.CreateExtentLayer(ctx, layer, extent.SpatialReference.WKID); err != nil {
		return localErr(err)
	}

	var records []logparse.ExtentRecord
	unparseable := 0
	for _, m := range logs.LogMessages {
		if !logparse.IsExtentMessage(m.Message) {
			continue
		}
		record, err := logparse.ParseLogMessage(m.Message, m.Time)
		if err != nil {
			unparseable++
			env.log().WithError(err).Debug("skipping log message")
			continue
		}
		if !extent.ContainsStrictly(record.MinX, record.MinY, record.MaxX, record.MaxY) {
			continue
		}
		records = append(records, record)
	}
	if err := store.InsertExtents(ctx, layer, records); err != nil {
		return localErr(err)
	}
	events := len(records)
	if unparseable > 0 {
		env.log().WithField("count", unparseable).Warn("skipped unparseable extent messages")
	}

	if gridPath != "" {
		env.printf("Creating raster from feature class...")
		grid, err := store.ExtentGrid(ctx, layer, extent, env.Config.GridCellSize)
		if err != nil {
			return localErr(err)
		}
		if err := writeGrid(gridPath, grid); err != nil {
			return err
		}
	}

	env.printf("\nDone!\n\nTotal number of events found in logs: %d", events)
	env.log().WithFields(logrus.Fields{
		"service": service.String(),
		"events":  events,
		"layer":   layer,
	}).Info("extents collected")
	return nil
}

func writeGrid(path string, grid *dataset.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return ags.ErrLocalIO{Path: path, Err: err}
	}
	err = grid.WriteASCII(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return ags.ErrLocalIO{Path: path, Err: err}
	}
	return nil
}

func serviceStats(ctx context.Context, env *Env, args []string) error {
	path := args[0]
	logs, err := queryLogs(ctx, env, nil)
	if err != nil {
		return err
	}

	var agg stats.Aggregator
	agg.AddAll(logs.LogMessages)
	if agg.Skipped > 0 {
		env.log().WithField("count", agg.Skipped).Warn("skipped draw messages without elapsed time")
	}
	results := agg.Results()

	f, err := os.Create(path)
	if err != nil {
		return ags.ErrLocalIO{Path: path, Err: err}
	}
	err = stats.WriteCSV(f, results)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return ags.ErrLocalIO{Path: path, Err: err}
	}
	env.printf("Statistics for %d services written to %s", len(results), path)
	return nil
}
