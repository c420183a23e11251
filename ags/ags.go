// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package ags defines the core vocabulary shared by the ArcGIS Server
// administration tools: where a site lives (Site), how a service is
// named (ServiceRef), and the errors every tool reports.
//
// A service is addressed as "<folder/>name.type", for instance
// "Map.MapServer" at the site root or "Utilities/Geometry.GeometryServer"
// inside a folder.  The folder part is optional.
package ags

import (
	"fmt"
	"strings"
)

// ReservedFolders lists the folders that the tools never enumerate or
// modify.  They hold services that ArcGIS Server itself depends on.
var ReservedFolders = []string{"System", "Utilities"}

// IsReservedFolder returns true if folder is one of ReservedFolders.
func IsReservedFolder(folder string) bool {
	for _, f := range ReservedFolders {
		if strings.EqualFold(f, folder) {
			return true
		}
	}
	return false
}

// Service states reported by the admin API.
const (
	StateStarted = "STARTED"
	StateStopped = "STOPPED"
)

// ServiceRef names one service on a site.
type ServiceRef struct {
	// Folder is the folder holding the service, or "" for the
	// site root.
	Folder string

	// Name is the service name, without folder or type.
	Name string

	// Type is the service type, such as "MapServer".
	Type string
}

// ParseServiceRef parses a "<folder/>name.type" string.  The type is
// whatever follows the last dot.
func ParseServiceRef(s string) (ServiceRef, error) {
	s = strings.Trim(s, "/")
	var ref ServiceRef
	if i := strings.LastIndex(s, "/"); i >= 0 {
		ref.Folder = strings.Trim(s[:i], "/")
		s = s[i+1:]
	}
	dot := strings.LastIndex(s, ".")
	if dot <= 0 || dot == len(s)-1 {
		return ServiceRef{}, fmt.Errorf("service %q must be in <folder/>name.type notation", s)
	}
	ref.Name = s[:dot]
	ref.Type = s[dot+1:]
	return ref, nil
}

// String renders the reference in "<folder/>name.type" notation.
func (r ServiceRef) String() string {
	if r.Folder == "" {
		return r.Name + "." + r.Type
	}
	return r.Folder + "/" + r.Name + "." + r.Type
}

// RESTPath returns the reference as REST services directory path
// elements, such as "Folder/Name/MapServer".
func (r ServiceRef) RESTPath() string {
	if r.Folder == "" {
		return r.Name + "/" + r.Type
	}
	return r.Folder + "/" + r.Name + "/" + r.Type
}
