// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package dataset stores downloaded map data in a local SQLite file.
//
// A dataset holds named layers.  An extent layer holds map request
// rectangles mined from server logs; a feature layer holds features
// downloaded from a map service layer, with their geometry and
// attributes kept as JSON.  Creating a layer that already exists
// replaces it.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/logparse"
	"github.com/diffeo/agsadmin/restdata"
	"github.com/mitchellh/mapstructure"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// Layer kinds.
const (
	KindExtents  = "extents"
	KindFeatures = "features"
)

// ErrNoLayer is returned when using a layer that does not exist.
type ErrNoLayer struct {
	Name string
}

func (e ErrNoLayer) Error() string {
	return fmt.Sprintf("no such layer %q", e.Name)
}

// Layer describes one layer.
type Layer struct {
	Name         string
	Kind         string
	GeometryType string
	WKID         int
	Fields       []restdata.Field
	Created      int64
}

// StoredFeature is a feature read back from a feature layer.
type StoredFeature struct {
	// ObjectID is the source object ID, or 0 if there was none.
	ObjectID   int64
	Attributes map[string]interface{}
	Geometry   map[string]interface{}
}

// Store is an open dataset.
type Store struct {
	db    *sql.DB
	path  string
	clock clock.Clock
}

// Open opens or creates the dataset at path and brings its schema up
// to date.  A path of ":memory:" or "file::memory:" gives a private
// in-memory dataset.
func Open(path string) (*Store, error) {
	return OpenWithClock(path, clock.New())
}

// OpenWithClock opens a dataset using an explicit time source for
// layer creation times.
func OpenWithClock(path string, clk clock.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ags.ErrLocalIO{Path: path, Err: err}
	}
	// An in-memory database exists per connection
	db.SetMaxOpenConns(1)
	if err := Upgrade(db); err != nil {
		db.Close()
		return nil, ags.ErrLocalIO{Path: path, Err: err}
	}
	return &Store{db: db, path: path, clock: clk}, nil
}

// Path returns the path the dataset was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the dataset.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, f func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) createLayer(ctx context.Context, layer Layer) error {
	fields := layer.Fields
	if fields == nil {
		fields = []restdata.Field{}
	}
	fieldJSON, err := restdata.Marshal(fields)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM extents WHERE layer=?",
			"DELETE FROM features WHERE layer=?",
			"DELETE FROM layers WHERE name=?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, layer.Name); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO layers(name, kind, geometry_type, wkid, fields, created) VALUES (?, ?, ?, ?, ?, ?)",
			layer.Name, layer.Kind, layer.GeometryType, layer.WKID, string(fieldJSON), s.clock.Now().Unix())
		return err
	})
}

// Layer fetches the description of a layer.
func (s *Store) Layer(ctx context.Context, name string) (Layer, error) {
	layer := Layer{Name: name}
	var fieldJSON string
	row := s.db.QueryRowContext(ctx,
		"SELECT kind, geometry_type, wkid, fields, created FROM layers WHERE name=?", name)
	err := row.Scan(&layer.Kind, &layer.GeometryType, &layer.WKID, &fieldJSON, &layer.Created)
	if err == sql.ErrNoRows {
		return layer, ErrNoLayer{Name: name}
	}
	if err != nil {
		return layer, err
	}
	err = restdata.Decode([]byte(fieldJSON), &layer.Fields)
	return layer, err
}

func (s *Store) checkLayer(ctx context.Context, name, kind string) error {
	layer, err := s.Layer(ctx, name)
	if err != nil {
		return err
	}
	if layer.Kind != kind {
		return fmt.Errorf("layer %q holds %s, not %s", name, layer.Kind, kind)
	}
	return nil
}

// CreateExtentLayer creates an empty polygon layer for map request
// extents in the spatial reference wkid.
func (s *Store) CreateExtentLayer(ctx context.Context, name string, wkid int) error {
	return s.createLayer(ctx, Layer{
		Name:         name,
		Kind:         KindExtents,
		GeometryType: "esriGeometryPolygon",
		WKID:         wkid,
	})
}

const insertExtent = "INSERT INTO extents(layer, event_time, min_x, min_y, max_x, max_y, scale, inv_scale, width, height) " +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

// InsertExtent adds one map request to an extent layer.
func (s *Store) InsertExtent(ctx context.Context, layer string, r logparse.ExtentRecord) error {
	return s.InsertExtents(ctx, layer, []logparse.ExtentRecord{r})
}

// InsertExtents adds map requests to an extent layer in a single
// transaction.  Either every record is stored or none is.
func (s *Store) InsertExtents(ctx context.Context, layer string, records []logparse.ExtentRecord) error {
	if err := s.checkLayer(ctx, layer, KindExtents); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertExtent)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range records {
			var scale, invScale, width, height sql.NullFloat64
			if r.HasScale {
				scale = sql.NullFloat64{Float64: r.Scale, Valid: true}
				if inv, ok := r.InvScale(); ok {
					invScale = sql.NullFloat64{Float64: inv, Valid: true}
				}
			}
			if r.HasSize {
				width = sql.NullFloat64{Float64: r.Width, Valid: true}
				height = sql.NullFloat64{Float64: r.Height, Valid: true}
			}
			_, err = stmt.ExecContext(ctx, layer, r.Time.UnixNano()/1000000,
				r.MinX, r.MinY, r.MaxX, r.MaxY, scale, invScale, width, height)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Extents returns every extent in a layer, in insertion order.
func (s *Store) Extents(ctx context.Context, layer string) ([]logparse.ExtentRecord, error) {
	if err := s.checkLayer(ctx, layer, KindExtents); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT event_time, min_x, min_y, max_x, max_y, scale, width, height FROM extents WHERE layer=? ORDER BY id",
		layer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []logparse.ExtentRecord
	for rows.Next() {
		var (
			r                    logparse.ExtentRecord
			millis               int64
			scale, width, height sql.NullFloat64
		)
		err = rows.Scan(&millis, &r.MinX, &r.MinY, &r.MaxX, &r.MaxY, &scale, &width, &height)
		if err != nil {
			return nil, err
		}
		r.Time = timeFromMillis(millis)
		r.Scale, r.HasScale = scale.Float64, scale.Valid
		r.Width, r.Height, r.HasSize = width.Float64, height.Float64, width.Valid && height.Valid
		result = append(result, r)
	}
	return result, rows.Err()
}

// CreateFeatureLayer creates an empty layer for features with the
// given geometry type and attribute fields.
func (s *Store) CreateFeatureLayer(ctx context.Context, name, geometryType string, wkid int, fields []restdata.Field) error {
	return s.createLayer(ctx, Layer{
		Name:         name,
		Kind:         KindFeatures,
		GeometryType: geometryType,
		WKID:         wkid,
		Fields:       fields,
	})
}

const insertFeature = "INSERT INTO features(layer, object_id, geometry, attributes, min_x, min_y, max_x, max_y) " +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

// InsertFeature adds one feature to a feature layer.  The attribute
// named oidField is stored as the object ID and left out of the
// stored attributes.
func (s *Store) InsertFeature(ctx context.Context, layer, oidField string, f restdata.Feature) error {
	return s.InsertFeatures(ctx, layer, oidField, []restdata.Feature{f}, nil)
}

// InsertFeatures adds features to a feature layer in a single
// transaction, as InsertFeature does for one.  If progress is not nil
// it is called with the number stored so far after each feature.
// Either every feature is stored or none is.
func (s *Store) InsertFeatures(ctx context.Context, layer, oidField string, features []restdata.Feature, progress func(loaded int)) error {
	if err := s.checkLayer(ctx, layer, KindFeatures); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertFeature)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, f := range features {
			args, err := featureRow(layer, oidField, f)
			if err != nil {
				return err
			}
			if _, err = stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
			if progress != nil {
				progress(i + 1)
			}
		}
		return nil
	})
}

// featureRow converts a feature to the values of a features row.
func featureRow(layer, oidField string, f restdata.Feature) ([]interface{}, error) {
	var objectID sql.NullInt64
	attributes := make(map[string]interface{}, len(f.Attributes))
	for k, v := range f.Attributes {
		if oidField != "" && k == oidField {
			var oid int64
			if err := mapstructure.WeakDecode(v, &oid); err != nil {
				return nil, fmt.Errorf("object ID %v: %v", v, err)
			}
			objectID = sql.NullInt64{Int64: oid, Valid: true}
			continue
		}
		attributes[k] = v
	}
	attrJSON, err := restdata.Marshal(attributes)
	if err != nil {
		return nil, err
	}

	var (
		geomJSON               sql.NullString
		minX, minY, maxX, maxY sql.NullFloat64
	)
	if f.Geometry != nil {
		geom, err := DecodeGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("geometry: %v", err)
		}
		if x0, y0, x1, y1, ok := geom.Envelope(); ok {
			minX = sql.NullFloat64{Float64: x0, Valid: true}
			minY = sql.NullFloat64{Float64: y0, Valid: true}
			maxX = sql.NullFloat64{Float64: x1, Valid: true}
			maxY = sql.NullFloat64{Float64: y1, Valid: true}
		}
		bytes, err := restdata.Marshal(f.Geometry)
		if err != nil {
			return nil, err
		}
		geomJSON = sql.NullString{String: string(bytes), Valid: true}
	}
	return []interface{}{layer, objectID, geomJSON, string(attrJSON), minX, minY, maxX, maxY}, nil
}

// Features returns every feature in a layer, in insertion order.
func (s *Store) Features(ctx context.Context, layer string) ([]StoredFeature, error) {
	if err := s.checkLayer(ctx, layer, KindFeatures); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT object_id, geometry, attributes FROM features WHERE layer=? ORDER BY id", layer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []StoredFeature
	for rows.Next() {
		var (
			f        StoredFeature
			oid      sql.NullInt64
			geomJSON sql.NullString
			attrJSON string
		)
		if err = rows.Scan(&oid, &geomJSON, &attrJSON); err != nil {
			return nil, err
		}
		f.ObjectID = oid.Int64
		if err = restdata.Decode([]byte(attrJSON), &f.Attributes); err != nil {
			return nil, err
		}
		if geomJSON.Valid {
			if err = restdata.Decode([]byte(geomJSON.String), &f.Geometry); err != nil {
				return nil, err
			}
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// Count returns the number of rows in a layer of either kind.
func (s *Store) Count(ctx context.Context, layer string) (int, error) {
	info, err := s.Layer(ctx, layer)
	if err != nil {
		return 0, err
	}
	table := "extents"
	if info.Kind == KindFeatures {
		table = "features"
	}
	var count int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE layer=?", layer).Scan(&count)
	return count, err
}

func timeFromMillis(millis int64) time.Time {
	return time.Unix(0, millis*int64(time.Millisecond))
}
