// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ops

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/url"
	"strings"

	"github.com/diffeo/agsadmin/ags"
)

// Caching tool names on the System/CachingTools geoprocessing service.
const (
	CreateCacheTool = "Create Map Cache"
	ManageTilesTool = "Manage Map Cache Tiles"
)

// Cache update modes.
const (
	CacheNew   = "new"
	CacheAll   = "all"
	CacheEmpty = "empty"
)

func init() {
	register(Command{
		Name:    "cache",
		Args:    "<mapService> <new|all|empty> [tilingScheme]",
		Usage:   "create a map cache, or recreate all or only empty tiles",
		MinArgs: 2,
		Check:   checkCache,
		Action:  cache,
	})
}

// cacheServiceURL names a map service the way the caching tools
// expect, "<folder/>name:MapServer".
func cacheServiceURL(service ags.ServiceRef) string {
	name := service.Name + ":" + service.Type
	if service.Folder == "" {
		return name
	}
	return service.Folder + "/" + name
}

func checkCache(args []string) error {
	if err := checkService(args); err != nil {
		return err
	}
	switch mode := strings.ToLower(args[1]); mode {
	case CacheNew:
		if len(args) < 3 || args[2] == "" {
			return ags.ErrUsage{Message: "Please provide a tiling scheme file for the cache..."}
		}
	case CacheAll, CacheEmpty:
	default:
		return ags.ErrUsage{Message: fmt.Sprintf("Unknown cache mode %q, use new, all or empty", args[1])}
	}
	return nil
}

func cache(ctx context.Context, env *Env, args []string) error {
	service, err := ags.ParseServiceRef(args[0])
	if err != nil {
		return ags.ErrUsage{Message: err.Error()}
	}
	serviceURL := cacheServiceURL(service)

	updateMode := ""
	switch mode := strings.ToLower(args[1]); mode {
	case CacheNew:
		scheme, err := ioutil.ReadFile(args[2])
		if err != nil {
			return ags.ErrLocalIO{Path: args[2], Err: err}
		}
		env.printf("Creating new cache...")
		_, err = env.Client.ExecuteTool(ctx, CreateCacheTool, url.Values{
			"service_url":    {serviceURL},
			"tiling_scheme":  {string(scheme)},
			"scales_type":    {"PREDEFINED"},
			"storage_format": {"COMPACT"},
		})
		if err != nil {
			return err
		}
		updateMode = "RECREATE_ALL_TILES"
	case CacheAll:
		env.printf("Rebuilding cache...")
		updateMode = "RECREATE_ALL_TILES"
	case CacheEmpty:
		env.printf("Rebuilding cache...")
		updateMode = "RECREATE_EMPTY_TILES"
	default:
		return ags.ErrUsage{Message: fmt.Sprintf("Unknown cache mode %q, use new, all or empty", args[1])}
	}

	_, err = env.Client.ExecuteTool(ctx, ManageTilesTool, url.Values{
		"service_url": {serviceURL},
		"update_mode": {updateMode},
	})
	if err != nil {
		return err
	}
	env.printf("Cache of %s updated with %s", service, updateMode)
	return nil
}
