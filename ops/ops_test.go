// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ops_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/agstest"
	"github.com/diffeo/agsadmin/config"
	"github.com/diffeo/agsadmin/dataset"
	"github.com/diffeo/agsadmin/ops"
	"github.com/diffeo/agsadmin/restclient"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// Suite runs commands against a fresh fake site per test.
type Suite struct {
	suite.Suite

	Clock  *clock.Mock
	Server *agstest.Server
	Out    *bytes.Buffer
	Hook   *logtest.Hook
	Env    *ops.Env
}

func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Server = agstest.NewServer()
	s.Out = &bytes.Buffer{}
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s.Hook = hook
	s.Env = &ops.Env{
		Client:   restclient.NewWithClock(s.Server.Site(), s.Clock),
		Config:   config.Default(),
		Username: agstest.DefaultUsername,
		Password: agstest.DefaultPassword,
		Out:      s.Out,
		Log:      logger,
		Clock:    s.Clock,
	}
}

func (s *Suite) TearDownTest() {
	s.Server.Close()
}

func TestOps(t *testing.T) {
	suite.Run(t, &Suite{})
}

func (s *Suite) run(args ...string) error {
	return ops.Run(context.Background(), s.Env, args)
}

func (s *Suite) lines() []string {
	return strings.Split(strings.TrimRight(s.Out.String(), "\n"), "\n")
}

func (s *Suite) path(name string) string {
	return filepath.Join(s.T().TempDir(), name)
}

var (
	mapService  = ags.ServiceRef{Name: "Map", Type: "MapService"}
	baseStreets = ags.ServiceRef{Folder: "Base", Name: "Streets", Type: "MapServer"}
)

func (s *Suite) TestUsage() {
	err := s.run()
	s.Equal(ags.ErrUsage{Message: ops.NotEnoughArguments}, err)

	err = s.run("restart", "Map.MapServer")
	s.Equal(ags.ErrUsage{Message: "Unknown command: restart, use '/?' for help"}, err)

	err = s.run("stop")
	s.Equal(ags.ErrUsage{Message: ops.NotEnoughArguments}, err)

	// nothing was sent for any of them
	s.Empty(s.Server.Requests())
}

func (s *Suite) TestBadArgumentsSendNothing() {
	for _, args := range [][]string{
		{"stop", "Map"},
		{"start", "Base/"},
		{"status", "Map"},
		{"backup", " "},
		{"cache", "Map", "all"},
		{"cache", "Map.MapServer", "new"},
		{"cache", "Map.MapServer", "partial"},
		{"logFC", "Map", s.path("d.db"), "e"},
		{"download", "/", s.path("d.db"), "roads"},
	} {
		err := s.run(args...)
		s.IsType(ags.ErrUsage{}, err, "%v", args)
	}
	// not even a token request
	s.Empty(s.Server.Requests())

	// "all" is not a service name but is a valid argument
	s.NoError(s.run("stop", "all"))
}

func (s *Suite) TestStop() {
	s.Server.AddService(mapService, ags.StateStarted)
	err := s.run("stop", "Map.MapService")
	s.NoError(err)
	s.Equal([]string{"stop successfully performed on Map.MapService"}, s.lines())
	s.Equal(ags.StateStopped, s.Server.State(mapService))
	s.Len(s.Server.RequestsTo("/generateToken"), 1)
}

func (s *Suite) TestCommandCase() {
	s.Server.AddService(mapService, ags.StateStopped)
	s.NoError(s.run("START", "Map.MapService"))
	s.Equal(ags.StateStarted, s.Server.State(mapService))
}

func (s *Suite) TestBadCredentials() {
	s.Env.Password = "wrong"
	err := s.run("list")
	s.IsType(ags.ErrAuthenticationFailed{}, err)
	s.Empty(s.Server.RequestsTo("/admin/services"))
}

func (s *Suite) TestList() {
	s.NoError(s.run("list"))
	s.Equal([]string{"No services found"}, s.lines())

	s.Out.Reset()
	s.Server.AddService(mapService, ags.StateStarted)
	s.Server.AddService(baseStreets, ags.StateStopped)
	s.Server.AddService(ags.ServiceRef{Folder: "System", Name: "CachingTools", Type: "GPServer"}, ags.StateStarted)
	s.NoError(s.run("list"))
	s.Equal([]string{
		"Services on 127.0.0.1:",
		"  STARTED > Map.MapService",
		"  STOPPED > Base/Streets.MapServer",
	}, s.lines())
}

func (s *Suite) TestStartAllContinues() {
	other := ags.ServiceRef{Name: "Other", Type: "MapServer"}
	s.Server.AddService(mapService, ags.StateStopped)
	s.Server.AddService(baseStreets, ags.StateStopped)
	s.Server.AddService(other, ags.StateStopped)
	s.Server.FailOperation(mapService, "start", "Service is locked.")

	err := s.run("start", "all")
	if s.IsType(ags.ErrRemoteOperation{}, err) {
		s.Equal("start", err.(ags.ErrRemoteOperation).Operation)
		s.Contains(err.Error(), "1 of 3 services failed: Map.MapService")
	}
	s.Equal([]string{
		"Failed to perform operation. Returned message from the server:",
		"  Service is locked.",
		"start successfully performed on Other.MapServer",
		"start successfully performed on Base/Streets.MapServer",
	}, s.lines())
	s.Equal(ags.StateStopped, s.Server.State(mapService))
	s.Equal(ags.StateStarted, s.Server.State(baseStreets))
	s.Equal(ags.StateStarted, s.Server.State(other))
}

func (s *Suite) TestStopAllAborts() {
	s.Server.AddService(mapService, ags.StateStarted)
	s.Server.AddService(baseStreets, ags.StateStarted)
	s.Server.Intercept = func(w http.ResponseWriter, r *http.Request) bool {
		if !strings.HasSuffix(r.URL.Path, "/stop") {
			return false
		}
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			conn.Close()
		}
		return true
	}
	err := s.run("stop", "all")
	s.IsType(ags.ErrConnectionFailed{}, err)
	// the first failure ends the batch
	s.Len(s.Server.RequestsTo("/stop"), 1)
	s.Empty(s.Out.String())
}

func (s *Suite) TestDelete() {
	s.Server.AddService(baseStreets, ags.StateStopped)
	s.NoError(s.run("delete", "Base/Streets.MapServer"))
	s.Equal("", s.Server.State(baseStreets))

	s.Out.Reset()
	err := s.run("delete", "Base/Streets.MapServer")
	s.IsType(ags.ErrRemoteOperation{}, err)
	s.Equal([]string{
		"Failed to perform operation. Returned message from the server:",
		"  Service 'Base/Streets.MapServer' does not exist.",
	}, s.lines())
}

func (s *Suite) TestStatus() {
	s.Server.AddService(mapService, ags.StateStarted)
	s.Server.AddService(baseStreets, ags.StateStarted)
	s.NoError(s.run("status"))
	s.Equal([]string{"All services are running..."}, s.lines())

	s.Server.AddService(ags.ServiceRef{Name: "Other", Type: "MapServer"}, ags.StateStopped)
	err := s.run("status")
	s.Equal(ags.ErrCheckFailed{Check: "status", Detail: "1 services are stopped..."}, err)

	s.NoError(s.run("status", "Base/Streets.MapServer"))
}

func (s *Suite) TestPermissions() {
	s.NoError(s.run("permissions", "Base", "viewers"))
	s.Equal([]string{"No permissions set to the service or folder..."}, s.lines())

	s.Server.SetPermissions("Base", "esriEveryone", "viewers")
	s.Out.Reset()
	s.NoError(s.run("permissions", "Base", "viewers"))
	s.Equal([]string{"viewers is applied to the service or folder..."}, s.lines())

	err := s.run("permissions", "Base", "editors")
	s.Equal(ags.ErrCheckFailed{
		Check:  "permissions",
		Detail: "editors is not applied to the service or folder...",
	}, err)
}

func (s *Suite) TestBackup() {
	err := s.run("backup", " ")
	s.Equal(ags.ErrUsage{Message: "Please define a folder for the backup to be exported to."}, err)

	s.NoError(s.run("backup", `C:\Backups\`))
	lines := s.lines()
	if s.Len(lines, 2) {
		s.Equal("Backing up the ArcGIS Server site running at 127.0.0.1...", lines[0])
		s.Equal(`ArcGIS Server site has been successfully backed up and is available at this location: C:\Backups/site.agssite...`, lines[1])
	}
}

func (s *Suite) TestRestore() {
	s.Server.SiteExists = true
	s.Server.ImportResult.Result = append(s.Server.ImportResult.Result, restdata.ImportResult{
		Source: "Map.MapServer",
		Messages: []restdata.ImportMessage{
			{Level: "WARNING", Message: "Data source is missing."},
			{Level: "WARNING", Message: "Cluster default is unavailable."},
		},
	})
	report := s.path("restore.txt")

	s.NoError(s.run("restore", `C:\Backups\site.agssite`, report))
	lines := s.lines()
	if s.Len(lines, 5) {
		s.Equal("Site already created...", lines[0])
		s.Equal("ArcGIS Server site has been successfully restored. Import operation completed in 12 seconds.", lines[3])
		s.Equal("A file with the report from the restore utility has been saved at: "+report, lines[4])
	}
	// createNewSite goes out without a token
	if reqs := s.Server.RequestsTo("/admin/createNewSite"); s.Len(reqs, 1) {
		s.Equal("", reqs[0].Form.Get("token"))
	}

	bytes, err := ioutil.ReadFile(report)
	if s.NoError(err) {
		text := string(bytes)
		s.True(strings.HasPrefix(text, "\ufeffSite has been successfully restored. Import operation completed in 12 seconds.\n\n"))
		s.Contains(text, "\n"+strings.Repeat("-", 133)+"\n1.Data source is missing.\n\n2.Cluster default is unavailable.\n\n")
	}
}

func (s *Suite) TestRestoreNewSite() {
	s.Server.Username = "someone"
	s.NoError(s.run("restore", "site.agssite"))
	s.Equal("Site created successfully...", s.lines()[0])
	// the new site takes the credentials given on the command line
	s.Equal(agstest.DefaultUsername, s.Server.Username)
}

func TestRestoreReportNoMessages(t *testing.T) {
	report := ops.NewRestoreReport(restdata.ImportSiteResult{
		Result: []restdata.ImportResult{{
			Source: "SITE",
			Messages: []restdata.ImportMessage{
				{Level: "INFO", Message: "Import operation completed in 3 seconds."},
			},
		}},
	})
	assert.Equal(t, "Import operation completed in 3 seconds.", report.Completed)
	assert.Empty(t, report.Messages)

	var buf bytes.Buffer
	if assert.NoError(t, report.Write(&buf)) {
		assert.Equal(t, "\ufeffSite has been successfully restored. Import operation completed in 3 seconds.\n\n", buf.String())
	}
}

func (s *Suite) setStreets() {
	s.Server.AddService(baseStreets, ags.StateStarted)
	s.Server.SetMapService(baseStreets, restdata.MapServiceInfo{
		MapName: "Layers",
		FullExtent: &restdata.Extent{
			XMin: 0, YMin: 0, XMax: 100, YMax: 50,
			SpatialReference: &restdata.SpatialReference{WKID: 2193},
		},
	})
}

func (s *Suite) TestLogFC() {
	s.setStreets()
	s.Server.Logs = []restdata.LogMessage{
		{Type: "FINE", Source: "Base/Streets.MapServer", Time: 1000, Message: "Extent:10,10,20,20;Size:800,600;Scale:5000"},
		{Type: "FINE", Source: "Base/Streets.MapServer", Time: 2000, Message: "Extent:12,12,18,18;Size:800,600;Scale:2500"},
		{Type: "FINE", Source: "Base/Streets.MapServer", Time: 3000, Message: "Extent:60,30,70,40"},
		// touches the edge of the full extent
		{Type: "FINE", Source: "Base/Streets.MapServer", Time: 4000, Message: "Extent:0,10,20,20"},
		{Type: "FINE", Source: "Base/Streets.MapServer", Time: 5000, Message: "Extent:1,2,3"},
		{Type: "FINE", Source: "Base/Streets.MapServer", Time: 6000, Message: "End ExportMapImage", Elapsed: "0.2"},
		{Type: "FINE", Source: "Other.MapServer", Time: 7000, Message: "Extent:10,10,20,20"},
	}
	dbPath := s.path("logs.db")
	gridPath := s.path("density.asc")
	s.Env.Config.GridCellSize = 25

	s.NoError(s.run("logFC", "Base/Streets.MapServer", dbPath, "requests", gridPath))
	s.Equal([]string{
		"Accessing Logs...",
		"  Operation completed successfully!",
		"Creating output feature class...",
		"Creating raster from feature class...",
		"",
		"Done!",
		"",
		"Total number of events found in logs: 3",
	}, s.lines())

	if reqs := s.Server.RequestsTo("/admin/logs/query"); s.Len(reqs, 1) {
		s.Equal("FINE", reqs[0].Form.Get("level"))
		s.Equal("0", reqs[0].Form.Get("startTime"))
		s.Equal("-604800000", reqs[0].Form.Get("endTime"))
		s.Contains(reqs[0].Form.Get("filter"), "Base/Streets.MapServer")
	}

	store, err := dataset.Open(dbPath)
	s.Require().NoError(err)
	defer store.Close()
	layer, err := store.Layer(context.Background(), "requests")
	if s.NoError(err) {
		s.Equal(2193, layer.WKID)
	}
	extents, err := store.Extents(context.Background(), "requests")
	if s.NoError(err) && s.Len(extents, 3) {
		s.Equal(10.0, extents[0].MinX)
		s.Equal(5000.0, extents[0].Scale)
		s.False(extents[2].HasScale)
	}

	bytes, err := ioutil.ReadFile(gridPath)
	if s.NoError(err) {
		s.Equal("ncols         4\n"+
			"nrows         2\n"+
			"xllcorner     0\n"+
			"yllcorner     0\n"+
			"cellsize      25\n"+
			"NODATA_value  -9999\n"+
			"-9999 -9999 1 -9999\n"+
			"2 -9999 -9999 -9999\n", string(bytes))
	}

	var warned bool
	for _, e := range s.Hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "skipped unparseable extent messages" {
			warned = true
			s.Equal(1, e.Data["count"])
		}
	}
	s.True(warned)
}

func (s *Suite) TestLogFCNoGrid() {
	s.setStreets()
	s.NoError(s.run("logFC", "Base/Streets.MapServer", s.path("logs.db"), "requests", "None"))
	s.Contains(s.Out.String(), "Total number of events found in logs: 0")
	s.NotContains(s.Out.String(), "Creating raster")
}

func (s *Suite) TestLogFCNoExtent() {
	s.Server.SetMapService(mapService, restdata.MapServiceInfo{MapName: "Layers"})
	err := s.run("logFC", "Map.MapService", s.path("logs.db"), "requests")
	if s.IsType(ags.ErrRemoteOperation{}, err) {
		s.Equal([]string{"Unable to find Extent detail for 'Map.MapService'!"},
			err.(ags.ErrRemoteOperation).Messages)
	}
	s.Empty(s.Server.RequestsTo("/admin/logs/query"))
}

func (s *Suite) TestServiceStats() {
	s.Server.Logs = []restdata.LogMessage{
		{Type: "FINE", Source: "Map.MapServer", Message: "End ExportMapImage", Elapsed: "0.5"},
		{Type: "FINE", Source: "Map.MapServer", Message: "End ExportMapImage", Elapsed: 1.5},
		{Type: "FINE", Source: "Base/Streets.MapServer", Message: "End ExportMapImage", Elapsed: "0.25"},
		{Type: "FINE", Source: "Base/Streets.MapServer", Message: "End ExportMapImage", Elapsed: ""},
		{Type: "FINE", Source: "Base/Streets.MapServer", Message: "Extent:1,1,2,2"},
	}
	report := s.path("stats.csv")
	s.NoError(s.run("serviceStats", report))
	s.Contains(s.Out.String(), "Statistics for 2 services written to "+report)

	if reqs := s.Server.RequestsTo("/admin/logs/query"); s.Len(reqs, 1) {
		s.Contains(reqs[0].Form.Get("filter"), `"machines"`)
	}

	bytes, err := ioutil.ReadFile(report)
	if s.NoError(err) {
		s.Equal("Service,Number of hits,Average seconds per draw\n"+
			"Base/Streets.MapServer,1,0.25\n"+
			"Map.MapServer,2,1\n", string(bytes))
	}
}

func (s *Suite) TestServiceStatsBadPath() {
	err := s.run("serviceStats", filepath.Join(s.T().TempDir(), "missing", "stats.csv"))
	s.IsType(ags.ErrLocalIO{}, err)
}

func (s *Suite) TestCacheNew() {
	scheme := s.path("conf.xml")
	s.Require().NoError(ioutil.WriteFile(scheme, []byte("<TileCacheInfo/>"), 0644))

	s.NoError(s.run("cache", "Base/Streets.MapServer", "new", scheme))
	s.Equal("Creating new cache...", s.lines()[0])

	if reqs := s.Server.RequestsTo("/Create Map Cache/execute"); s.Len(reqs, 1) {
		s.Equal("Base/Streets:MapServer", reqs[0].Form.Get("service_url"))
		s.Equal("<TileCacheInfo/>", reqs[0].Form.Get("tiling_scheme"))
		s.Equal("COMPACT", reqs[0].Form.Get("storage_format"))
	}
	if reqs := s.Server.RequestsTo("/Manage Map Cache Tiles/execute"); s.Len(reqs, 1) {
		s.Equal("RECREATE_ALL_TILES", reqs[0].Form.Get("update_mode"))
	}
}

func (s *Suite) TestCacheModes() {
	err := s.run("cache", "Map.MapServer", "new")
	s.Equal(ags.ErrUsage{Message: "Please provide a tiling scheme file for the cache..."}, err)
	err = s.run("cache", "Map.MapServer", "partial")
	s.IsType(ags.ErrUsage{}, err)
	s.Empty(s.Server.RequestsTo("/execute"))

	s.NoError(s.run("cache", "Map.MapServer", "empty"))
	s.Equal("Rebuilding cache...", s.lines()[0])
	if reqs := s.Server.RequestsTo("/execute"); s.Len(reqs, 1) {
		s.Equal("Map:MapServer", reqs[0].Form.Get("service_url"))
		s.Equal("RECREATE_EMPTY_TILES", reqs[0].Form.Get("update_mode"))
	}

	s.Server.FailTool(ops.ManageTilesTool, "ERROR 001: cache directory missing")
	err = s.run("cache", "Map.MapServer", "all")
	if s.IsType(ags.ErrRemoteOperation{}, err) {
		s.Equal([]string{"ERROR 001: cache directory missing"}, err.(ags.ErrRemoteOperation).Messages)
	}
}

func (s *Suite) TestDownload() {
	var features []restdata.Feature
	for i := 0; i < 3; i++ {
		features = append(features, restdata.Feature{
			Attributes: map[string]interface{}{"OBJECTID": int64(i + 1), "NAME": "street"},
			Geometry:   map[string]interface{}{"x": float64(i), "y": float64(i * 2)},
		})
	}
	s.Server.SetLayer("Base/Streets/MapServer/0", agstest.Layer{
		GeometryType:     "esriGeometryPoint",
		SpatialReference: &restdata.SpatialReference{WKID: 4326},
		Fields: []restdata.Field{
			{Name: "OBJECTID", Type: "esriFieldTypeOID"},
			{Name: "NAME", Type: "esriFieldTypeString"},
		},
		Features:       features,
		MaxRecordCount: 2,
	})
	dbPath := s.path("streets.db")
	url := s.Server.Site().String() + "/rest/services/Base/Streets/MapServer/0"

	s.NoError(s.run("download", url, dbPath, "streets"))
	s.Equal("Loaded 3 of 3 features...", s.lines()[len(s.lines())-1])
	s.Len(s.Server.RequestsTo("/Base/Streets/MapServer/0/query"), 2)

	store, err := dataset.Open(dbPath)
	s.Require().NoError(err)
	defer store.Close()
	layer, err := store.Layer(context.Background(), "streets")
	if s.NoError(err) {
		s.Equal("esriGeometryPoint", layer.GeometryType)
		s.Equal(4326, layer.WKID)
		s.Equal([]restdata.Field{{Name: "NAME", Type: "esriFieldTypeString"}}, layer.Fields)
	}
	stored, err := store.Features(context.Background(), "streets")
	if s.NoError(err) && s.Len(stored, 3) {
		s.Equal(int64(3), stored[2].ObjectID)
		s.Equal(map[string]interface{}{"NAME": "street"}, stored[2].Attributes)
	}
}

func (s *Suite) TestDownloadMissingLayer() {
	err := s.run("download", "Base/Nothing/MapServer/0", s.path("x.db"), "nothing")
	s.IsType(ags.ErrRemoteOperation{}, err)
}

func TestUsageText(t *testing.T) {
	var buf bytes.Buffer
	ops.Usage(&buf, "agsadmin")
	text := buf.String()
	for _, cmd := range ops.Commands() {
		assert.Contains(t, text, "  "+cmd.Name+" ")
	}
	assert.Contains(t, text, "agsadmin [options] server port adminUser adminPass command [args...]")
}
