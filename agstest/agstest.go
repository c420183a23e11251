// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package agstest provides an in-process fake ArcGIS Server for tests.
// It implements just enough of the token service, admin API and REST
// services directory for the agsadmin tools:
//
//     srv := agstest.NewServer()
//     defer srv.Close()
//     srv.AddService(ags.ServiceRef{Name: "Map", Type: "MapServer"}, ags.StateStarted)
//     c := restclient.New(srv.Site())
//
// The site context is always "/arcgis".  Every request is recorded
// and can be inspected with Requests().
package agstest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
)

// Default credentials and token of a new server.
const (
	DefaultUsername = "admin"
	DefaultPassword = "secret"
	DefaultToken    = "abc123"
)

// Request is one recorded request.
type Request struct {
	Path string
	Form url.Values
}

// Layer is a queryable feature layer.
type Layer struct {
	GeometryType     string
	SpatialReference *restdata.SpatialReference
	Fields           []restdata.Field
	Features         []restdata.Feature

	// MaxRecordCount caps the features returned per query; zero
	// returns everything at once.
	MaxRecordCount int
}

// Server is the fake site.  Exported fields may be changed by a test
// before it makes requests.
type Server struct {
	*httptest.Server

	Username string
	Password string
	Token    string

	// TokenExpires is the "expires" value sent with a token, in
	// epoch milliseconds.
	TokenExpires int64

	// TokenStatus, if non-zero, is sent as the HTTP status of every
	// token request instead of issuing a token.
	TokenStatus int

	// SiteExists is true if createNewSite should fail.
	SiteExists bool

	// ImportResult is returned by importSite.
	ImportResult restdata.ImportSiteResult

	// Logs are returned by logs/query, filtered by service.
	Logs []restdata.LogMessage

	// Intercept, if set, is called before normal handling; if it
	// returns true the request is considered answered.
	Intercept func(w http.ResponseWriter, r *http.Request) bool

	mu          sync.Mutex
	folders     []string
	services    map[string][]restdata.ServiceEntry
	states      map[string]string
	permissions map[string][]restdata.Permission
	failures    map[string][]string
	mapServices map[string]restdata.MapServiceInfo
	layers      map[string]Layer
	toolErrors  map[string][]string
	requests    []Request
}

// NewServer starts a fake site with default credentials and no
// services.  Call Close() when done.
func NewServer() *Server {
	s := &Server{
		Username:     DefaultUsername,
		Password:     DefaultPassword,
		Token:        DefaultToken,
		TokenExpires: 1500000000000,
		ImportResult: restdata.ImportSiteResult{
			Status: "success",
			Result: []restdata.ImportResult{{
				Source: "SITE",
				Messages: []restdata.ImportMessage{{
					Level:   "INFO",
					Message: "Import operation completed in 12 seconds.",
				}},
			}},
		},
		services:    map[string][]restdata.ServiceEntry{"": nil},
		states:      make(map[string]string),
		permissions: make(map[string][]restdata.Permission),
		failures:    make(map[string][]string),
		mapServices: make(map[string]restdata.MapServiceInfo),
		layers:      make(map[string]Layer),
		toolErrors:  make(map[string][]string),
	}
	s.Server = httptest.NewServer(s.handler())
	return s
}

// Site returns the site description for this server.
func (s *Server) Site() ags.Site {
	site, err := ags.ParseSite(s.URL + "/arcgis")
	if err != nil {
		panic(err)
	}
	return site
}

// AddFolder adds an empty folder.  Adding an existing folder does
// nothing.
func (s *Server) AddFolder(folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFolder(folder)
}

func (s *Server) addFolder(folder string) {
	if _, exists := s.services[folder]; exists {
		return
	}
	s.folders = append(s.folders, folder)
	s.services[folder] = nil
}

// AddService adds a service, creating its folder if needed.
func (s *Server) AddService(ref ags.ServiceRef, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFolder(ref.Folder)
	folderName := ref.Folder
	if folderName == "" {
		folderName = "/"
	}
	s.services[ref.Folder] = append(s.services[ref.Folder], restdata.ServiceEntry{
		FolderName:  folderName,
		ServiceName: ref.Name,
		Type:        ref.Type,
	})
	s.states[ref.String()] = state
}

// State returns the real-time state of a service, or "" if it does
// not exist.
func (s *Server) State(ref ags.ServiceRef) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[ref.String()]
}

// FailOperation makes a lifecycle operation ("start", "stop",
// "delete") on one service report an error envelope.
func (s *Server) FailOperation(ref ags.ServiceRef, op string, messages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+" "+ref.String()] = messages
}

// SetPermissions sets the permissions of a service or folder.
func (s *Server) SetPermissions(resource string, principals ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms := make([]restdata.Permission, 0, len(principals))
	for _, p := range principals {
		perm := restdata.Permission{Principal: p}
		perm.Permission.IsAllowed = true
		perms = append(perms, perm)
	}
	s.permissions[resource] = perms
}

// SetMapService sets the REST description of a map service.
func (s *Server) SetMapService(ref ags.ServiceRef, info restdata.MapServiceInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapServices[ref.RESTPath()] = info
}

// SetLayer sets a queryable layer, such as "Base/Streets/MapServer/0".
func (s *Server) SetLayer(layerPath string, layer Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[strings.Trim(layerPath, "/")] = layer
}

// FailTool makes a caching tool report error messages.
func (s *Server) FailTool(tool string, messages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolErrors[tool] = messages
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the recorded requests whose path ends with
// suffix.
func (s *Server) RequestsTo(suffix string) []Request {
	var result []Request
	for _, r := range s.Requests() {
		if strings.HasSuffix(r.Path, suffix) {
			result = append(result, r)
		}
	}
	return result
}

func (s *Server) handler() http.Handler {
	r := mux.NewRouter()
	root := r.PathPrefix("/arcgis").Subrouter()
	root.HandleFunc("/tokens/generateToken", s.generateToken).Methods("POST")
	root.HandleFunc("/admin/generateToken", s.generateToken).Methods("POST")
	root.HandleFunc("/admin/createNewSite", s.createSite).Methods("POST")
	root.HandleFunc("/admin/exportSite", s.authed(s.exportSite)).Methods("POST")
	root.HandleFunc("/admin/importSite", s.authed(s.importSite)).Methods("POST")
	root.HandleFunc("/admin/logs/query", s.authed(s.queryLogs)).Methods("POST")
	root.HandleFunc("/admin/services", s.authed(s.listRoot)).Methods("POST")
	root.PathPrefix("/admin/services/").HandlerFunc(s.authed(s.servicePath)).Methods("POST")
	root.HandleFunc("/rest/services/"+restCachingTools+"/{tool}/execute", s.authed(s.executeTool)).Methods("POST")
	root.PathPrefix("/rest/services/").HandlerFunc(s.authed(s.restPath)).Methods("POST")
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, restdata.ErrorEnvelope(404, "Could not find resource or operation '"+r.URL.Path+"'."))
	})

	n := negroni.New(negroni.NewRecovery())
	n.UseHandler(r)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		s.mu.Lock()
		s.requests = append(s.requests, Request{Path: r.URL.Path, Form: r.Form})
		intercept := s.Intercept
		s.mu.Unlock()
		if intercept != nil && intercept(w, r) {
			return
		}
		n.ServeHTTP(w, r)
	})
}
