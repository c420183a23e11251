// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
)

// CachingToolsPath is the REST path of the geoprocessing service that
// builds map tile caches.
const CachingToolsPath = "System/CachingTools/GPServer"

// ServiceInfo fetches the description of a map service from the REST
// services directory.
func (c *Client) ServiceInfo(ctx context.Context, service ags.ServiceRef) (restdata.MapServiceInfo, error) {
	var info restdata.MapServiceInfo
	err := c.call(ctx, "serviceInfo", c.Site.RESTPath(service.RESTPath()), nil, &info)
	return info, err
}

// QueryFeatures fetches every feature of a layer, such as
// "Base/Streets/MapServer/0".  If the server caps the number of
// features per response, further pages are requested from where the
// previous page ended.  The returned set carries the schema of the
// first page and the features of all pages.
func (c *Client) QueryFeatures(ctx context.Context, layerPath string) (restdata.FeatureSet, error) {
	var result restdata.FeatureSet
	path := c.Site.RESTPath(layerPath, "query")
	offset := 0
	for {
		params := url.Values{
			"where":          {"1=1"},
			"outFields":      {"*"},
			"returnGeometry": {"true"},
		}
		if offset > 0 {
			params.Set("resultOffset", strconv.Itoa(offset))
		}
		var page restdata.FeatureSet
		if err := c.call(ctx, "queryFeatures", path, params, &page); err != nil {
			return result, err
		}
		if offset == 0 {
			result = page
			result.Features = nil
		}
		result.Features = append(result.Features, page.Features...)
		offset += len(page.Features)
		if !page.ExceededTransferLimit || len(page.Features) == 0 {
			break
		}
	}
	result.ExceededTransferLimit = false
	return result, nil
}

// ExecuteTool runs a task of the caching tools geoprocessing service
// synchronously.  A task that reports an error message fails with
// ags.ErrRemoteOperation.
func (c *Client) ExecuteTool(ctx context.Context, tool string, params url.Values) (restdata.GPResult, error) {
	var result restdata.GPResult
	err := c.call(ctx, tool, c.Site.RESTPath(CachingToolsPath, tool, "execute"), params, &result)
	if err == nil && result.Failed() {
		var messages []string
		for _, m := range result.Messages {
			if m.Type == restdata.GPMessageError {
				messages = append(messages, m.Description)
			}
		}
		err = ags.ErrRemoteOperation{Operation: tool, Status: 200, Messages: messages}
	}
	return result, err
}
