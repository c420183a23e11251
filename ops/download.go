// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ops

import (
	"context"
	"strings"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/sirupsen/logrus"
)

// progressInterval is how many features are loaded between progress
// messages.
const progressInterval = 100

func init() {
	register(Command{
		Name:    "download",
		Args:    "<layerPath|layerURL> <dataset> <layer>",
		Usage:   "copy every feature of a map service layer into a dataset",
		MinArgs: 3,
		Check:   checkDownload,
		Action:  download,
	})
}

// layerPath reduces a full layer URL to its path under the REST
// services directory.  Plain paths are returned trimmed.
func layerPath(arg string) string {
	const marker = "/rest/services/"
	if i := strings.Index(arg, marker); i >= 0 {
		arg = arg[i+len(marker):]
	}
	if i := strings.IndexAny(arg, "?#"); i >= 0 {
		arg = arg[:i]
	}
	return strings.Trim(arg, "/")
}

// objectIDField finds the attribute holding the object ID: the field
// the server names, or else any attribute called "objectid".
func objectIDField(set restdata.FeatureSet) string {
	if set.ObjectIDFieldName != "" {
		return set.ObjectIDFieldName
	}
	for _, f := range set.Fields {
		if strings.EqualFold(f.Name, "objectid") {
			return f.Name
		}
	}
	if len(set.Features) > 0 {
		for k := range set.Features[0].Attributes {
			if strings.EqualFold(k, "objectid") {
				return k
			}
		}
	}
	return ""
}

func checkDownload(args []string) error {
	if layerPath(args[0]) == "" {
		return ags.ErrUsage{Message: "Please provide a map service layer to download"}
	}
	return nil
}

func download(ctx context.Context, env *Env, args []string) error {
	path := layerPath(args[0])
	datasetPath, layer := args[1], args[2]

	env.printf("Getting JSON from map service...")
	set, err := env.Client.QueryFeatures(ctx, path)
	if err != nil {
		return err
	}

	oidField := objectIDField(set)
	var fields []restdata.Field
	for _, f := range set.Fields {
		if f.Name != oidField {
			fields = append(fields, f)
		}
	}
	wkid := 0
	if set.SpatialReference != nil {
		wkid = set.SpatialReference.WKID
	}

	store, err := openDataset(env, datasetPath)
	if err != nil {
		return err
	}
	defer store.Close()

	env.printf("Converting JSON to feature class...")
	if err := store.CreateFeatureLayer(ctx, layer, set.GeometryType, wkid, fields); err != nil {
		return ags.ErrLocalIO{Path: datasetPath, Err: err}
	}
	total := len(set.Features)
	if total == 0 {
		env.printf("Loaded 0 of 0 features...")
	}
	err = store.InsertFeatures(ctx, layer, oidField, set.Features, func(loaded int) {
		if loaded%progressInterval == 0 || loaded == total {
			env.printf("Loaded %d of %d features...", loaded, total)
		}
	})
	if err != nil {
		return ags.ErrLocalIO{Path: datasetPath, Err: err}
	}
	env.log().WithFields(logrus.Fields{
		"layerPath": path,
		"features":  total,
		"layer":     layer,
	}).Info("layer downloaded")
	return nil
}
