// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines the JSON documents exchanged with an ArcGIS
// Server site, shared between the restclient package and the agstest
// fake server.
//
// Envelope Conventions
//
// Every admin API response is a JSON object.  A failed call is
// reported as
//
//     {"status": "error", "messages": ["...", "..."], "code": 500}
//
// with HTTP status 200, so the HTTP status alone does not tell
// success from failure.  The REST services directory and the token
// service use a second shape,
//
//     {"error": {"code": 498, "message": "Invalid token.", "details": []}}
//
// ParseEnvelope recognizes both.  Any other object is a success
// payload; a body that is not JSON at all is malformed.
//
// Numbers
//
// Some fields, notably a log message's "elapsed" time, arrive as
// either JSON numbers or strings depending on server version.  These
// are kept as interface{} and converted with the helper methods here.
package restdata

import (
	"github.com/mitchellh/mapstructure"
)

// TokenResponse is the success payload of generateToken.
type TokenResponse struct {
	Token string `json:"token"`

	// Expires is the expiry time in milliseconds since the Unix
	// epoch.
	Expires int64 `json:"expires"`

	SSL bool `json:"ssl"`
}

// ServiceEntry is one service in a ServiceList.
type ServiceEntry struct {
	FolderName  string `json:"folderName"`
	ServiceName string `json:"serviceName"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ServiceList is the response of admin/services and
// admin/services/<folder>.
type ServiceList struct {
	FolderName string         `json:"folderName,omitempty"`
	Folders    []string       `json:"folders"`
	Services   []ServiceEntry `json:"services"`
}

// ServiceStatus is the response of admin/services/<service>/status.
type ServiceStatus struct {
	ConfiguredState string `json:"configuredState"`
	RealTimeState   string `json:"realTimeState"`
}

// Permission grants or denies one principal access to a service or
// folder.
type Permission struct {
	Principal  string `json:"principal"`
	Permission struct {
		IsAllowed bool `json:"isAllowed"`
	} `json:"permission"`
}

// PermissionList is the response of admin/services/<service>/permissions.
type PermissionList struct {
	Permissions []Permission `json:"permissions"`
}

// ExportSiteResult is the response of admin/exportSite.
type ExportSiteResult struct {
	Location string `json:"location"`
}

// ImportMessage is one message reported by admin/importSite.
type ImportMessage struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ImportResult groups the import messages from one source, such as
// "SITE" or a machine name.
type ImportResult struct {
	Source   string          `json:"source"`
	Messages []ImportMessage `json:"messages"`
}

// ImportSiteResult is the response of admin/importSite.
type ImportSiteResult struct {
	Status string         `json:"status"`
	Result []ImportResult `json:"result"`
}

// LogMessage is one entry from admin/logs/query.
type LogMessage struct {
	Type       string      `json:"type"`
	Message    string      `json:"message"`
	Time       int64       `json:"time"`
	Source     string      `json:"source"`
	Machine    string      `json:"machine"`
	User       string      `json:"user"`
	Code       int         `json:"code"`
	Elapsed    interface{} `json:"elapsed"`
	Process    string      `json:"process"`
	Thread     string      `json:"thread"`
	MethodName string      `json:"methodName"`
}

// ElapsedSeconds returns the elapsed time of the logged operation.
// The second return value is false if the message carries no usable
// elapsed time.
func (m LogMessage) ElapsedSeconds() (float64, bool) {
	if m.Elapsed == nil {
		return 0, false
	}
	if s, isString := m.Elapsed.(string); isString && s == "" {
		return 0, false
	}
	var seconds float64
	if err := mapstructure.WeakDecode(m.Elapsed, &seconds); err != nil {
		return 0, false
	}
	return seconds, true
}

// LogQueryResult is the response of admin/logs/query.
type LogQueryResult struct {
	HasMore     bool         `json:"hasMore"`
	StartTime   int64        `json:"startTime"`
	EndTime     int64        `json:"endTime"`
	LogMessages []LogMessage `json:"logMessages"`
}

// SpatialReference identifies a coordinate system.
type SpatialReference struct {
	WKID       int `json:"wkid"`
	LatestWKID int `json:"latestWkid,omitempty"`
}

// Extent is a rectangle in some spatial reference.
type Extent struct {
	XMin             float64           `json:"xmin"`
	YMin             float64           `json:"ymin"`
	XMax             float64           `json:"xmax"`
	YMax             float64           `json:"ymax"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// ContainsStrictly returns true if the rectangle (minX, minY, maxX,
// maxY) lies entirely inside e without touching its edges.
func (e Extent) ContainsStrictly(minX, minY, maxX, maxY float64) bool {
	return minX > e.XMin && maxX < e.XMax && minY > e.YMin && maxY < e.YMax
}

// MapServiceInfo is the subset of a map service description the tools
// use.
type MapServiceInfo struct {
	MapName       string  `json:"mapName"`
	Description   string  `json:"description,omitempty"`
	FullExtent    *Extent `json:"fullExtent,omitempty"`
	InitialExtent *Extent `json:"initialExtent,omitempty"`
}

// Field describes one attribute field of a layer.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias,omitempty"`
}

// Feature is one row returned by a layer query.
type Feature struct {
	Attributes map[string]interface{} `json:"attributes"`
	Geometry   map[string]interface{} `json:"geometry,omitempty"`
}

// FeatureSet is the response of a layer query.
type FeatureSet struct {
	ObjectIDFieldName     string            `json:"objectIdFieldName,omitempty"`
	GeometryType          string            `json:"geometryType"`
	SpatialReference      *SpatialReference `json:"spatialReference,omitempty"`
	Fields                []Field           `json:"fields,omitempty"`
	Features              []Feature         `json:"features"`
	ExceededTransferLimit bool              `json:"exceededTransferLimit,omitempty"`
}

// GPMessageError is the message type of a geoprocessing task error.
const GPMessageError = "esriJobMessageTypeError"

// GPMessage is one message from a geoprocessing task.
type GPMessage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// GPParameter is one output parameter of a geoprocessing task.
type GPParameter struct {
	ParamName string      `json:"paramName"`
	DataType  string      `json:"dataType"`
	Value     interface{} `json:"value"`
}

// GPResult is the response of a synchronous geoprocessing execute.
type GPResult struct {
	Results  []GPParameter `json:"results"`
	Messages []GPMessage   `json:"messages"`
}

// Failed returns true if any message reports a task error.
func (r GPResult) Failed() bool {
	for _, m := range r.Messages {
		if m.Type == GPMessageError {
			return true
		}
	}
	return false
}
