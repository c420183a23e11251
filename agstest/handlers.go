// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package agstest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/gorilla/mux"
)

const restCachingTools = "System/CachingTools/GPServer"

var success = map[string]interface{}{"status": "success"}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = restdata.Encode(w, body)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	writeStatus(w, http.StatusOK, body)
}

// authed rejects requests without the issued token the way the admin
// API does: HTTP 200 with an error envelope.
func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.Token
		s.mu.Unlock()
		if r.Form.Get("token") != token {
			writeJSON(w, restdata.ErrorEnvelope(498, "Invalid token."))
			return
		}
		h(w, r)
	}
}

func (s *Server) generateToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.TokenStatus
	username, password := s.Username, s.Password
	token, expires := s.Token, s.TokenExpires
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
		return
	}
	if r.Form.Get("username") != username || r.Form.Get("password") != password {
		writeJSON(w, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    400,
				"message": "Unable to generate token.",
				"details": []string{"Invalid username or password."},
			},
		})
		return
	}
	writeJSON(w, map[string]interface{}{
		"token":   token,
		"expires": expires,
	})
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SiteExists {
		writeJSON(w, restdata.ErrorEnvelope(500, "A site already exists on this machine."))
		return
	}
	s.SiteExists = true
	s.Username = r.Form.Get("username")
	s.Password = r.Form.Get("password")
	writeJSON(w, success)
}

func (s *Server) exportSite(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimRight(r.Form.Get("location"), "/\\")
	if location == "" {
		writeJSON(w, restdata.ErrorEnvelope(500, "Location is required."))
		return
	}
	writeJSON(w, restdata.ExportSiteResult{Location: location + "/site.agssite"})
}

func (s *Server) importSite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result := s.ImportResult
	s.mu.Unlock()
	if r.Form.Get("location") == "" {
		writeJSON(w, restdata.ErrorEnvelope(500, "Location is required."))
		return
	}
	writeJSON(w, result)
}

func (s *Server) queryLogs(w http.ResponseWriter, r *http.Request) {
	var filter struct {
		Services interface{} `json:"services"`
	}
	if f := r.Form.Get("filter"); f != "" {
		if err := restdata.Decode([]byte(f), &filter); err != nil {
			writeJSON(w, restdata.ErrorEnvelope(500, "Invalid filter: "+err.Error()))
			return
		}
	}
	wanted := make(map[string]bool)
	if list, ok := filter.Services.([]interface{}); ok {
		for _, item := range list {
			if name, ok := item.(string); ok {
				wanted[name] = true
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	messages := []restdata.LogMessage{}
	for _, m := range s.Logs {
		if len(wanted) == 0 || wanted[m.Source] {
			messages = append(messages, m)
		}
	}
	writeJSON(w, restdata.LogQueryResult{LogMessages: messages})
}

func (s *Server) listRoot(w http.ResponseWriter, r *http.Request) {
	s.listFolder(w, "")
}

func (s *Server) listFolder(w http.ResponseWriter, folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	services, exists := s.services[folder]
	if !exists {
		writeJSON(w, restdata.ErrorEnvelope(404, "Folder '"+folder+"' does not exist."))
		return
	}
	list := restdata.ServiceList{
		FolderName: folder,
		Folders:    []string{},
		Services:   append([]restdata.ServiceEntry{}, services...),
	}
	if folder == "" {
		list.FolderName = "/"
		list.Folders = append(list.Folders, s.folders...)
		sort.Strings(list.Folders)
	}
	writeJSON(w, list)
}

// servicePath handles everything under admin/services/: folder
// listings and the per-resource operations.
func (s *Server) servicePath(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/arcgis/admin/services"), "/")
	resource, op := tail, ""
	if i := strings.LastIndex(tail, "/"); i >= 0 {
		switch tail[i+1:] {
		case "status", "start", "stop", "delete", "permissions":
			resource, op = tail[:i], tail[i+1:]
		}
	}
	switch op {
	case "":
		s.listFolder(w, resource)
	case "permissions":
		s.servicePermissions(w, resource)
	default:
		s.serviceOperation(w, resource, op)
	}
}

func (s *Server) servicePermissions(w http.ResponseWriter, resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms, ok := s.permissions[resource]
	if !ok {
		perms = []restdata.Permission{}
	}
	writeJSON(w, restdata.PermissionList{Permissions: perms})
}

func (s *Server) serviceOperation(w http.ResponseWriter, resource, op string) {
	ref, err := ags.ParseServiceRef(resource)
	if err != nil {
		writeJSON(w, restdata.ErrorEnvelope(404, err.Error()))
		return
	}
	key := ref.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	state, exists := s.states[key]
	if !exists {
		writeJSON(w, restdata.ErrorEnvelope(404, "Service '"+key+"' does not exist."))
		return
	}
	if messages, failing := s.failures[op+" "+key]; failing {
		writeJSON(w, restdata.ErrorEnvelope(500, messages...))
		return
	}
	switch op {
	case "status":
		writeJSON(w, restdata.ServiceStatus{ConfiguredState: state, RealTimeState: state})
		return
	case "start":
		s.states[key] = ags.StateStarted
	case "stop":
		s.states[key] = ags.StateStopped
	case "delete":
		delete(s.states, key)
		var kept []restdata.ServiceEntry
		for _, e := range s.services[ref.Folder] {
			if e.ServiceName != ref.Name || e.Type != ref.Type {
				kept = append(kept, e)
			}
		}
		s.services[ref.Folder] = kept
	}
	writeJSON(w, success)
}

// restPath handles the REST services directory: map service
// descriptions and layer queries.
func (s *Server) restPath(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/arcgis/rest/services"), "/")
	if strings.HasSuffix(tail, "/query") {
		s.queryLayer(w, r, strings.TrimSuffix(tail, "/query"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.mapServices[tail]
	if !ok {
		writeJSON(w, restdata.ErrorEnvelope(404, "Service not found"))
		return
	}
	writeJSON(w, info)
}

func (s *Server) queryLayer(w http.ResponseWriter, r *http.Request, layerPath string) {
	s.mu.Lock()
	layer, ok := s.layers[layerPath]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, restdata.ErrorEnvelope(400, "Invalid or missing input parameters."))
		return
	}

	offset := 0
	if o := r.Form.Get("resultOffset"); o != "" {
		var err error
		if offset, err = strconv.Atoi(o); err != nil || offset < 0 {
			writeJSON(w, restdata.ErrorEnvelope(400, "Invalid resultOffset."))
			return
		}
	}
	features := []restdata.Feature{}
	if offset < len(layer.Features) {
		features = layer.Features[offset:]
	}
	exceeded := false
	if layer.MaxRecordCount > 0 && len(features) > layer.MaxRecordCount {
		features = features[:layer.MaxRecordCount]
		exceeded = true
	}
	writeJSON(w, restdata.FeatureSet{
		ObjectIDFieldName:     "OBJECTID",
		GeometryType:          layer.GeometryType,
		SpatialReference:      layer.SpatialReference,
		Fields:                layer.Fields,
		Features:              features,
		ExceededTransferLimit: exceeded,
	})
}

func (s *Server) executeTool(w http.ResponseWriter, r *http.Request) {
	tool := mux.Vars(r)["tool"]
	s.mu.Lock()
	errors, failing := s.toolErrors[tool]
	s.mu.Unlock()

	result := restdata.GPResult{Results: []restdata.GPParameter{}}
	result.Messages = append(result.Messages, restdata.GPMessage{
		Type:        "esriJobMessageTypeInformative",
		Description: "Executing (" + tool + ")",
	})
	if failing {
		for _, e := range errors {
			result.Messages = append(result.Messages, restdata.GPMessage{
				Type:        restdata.GPMessageError,
				Description: e,
			})
		}
	} else {
		result.Messages = append(result.Messages, restdata.GPMessage{
			Type:        "esriJobMessageTypeInformative",
			Description: "Succeeded",
		})
	}
	writeJSON(w, result)
}
