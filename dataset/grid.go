// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/diffeo/agsadmin/restdata"
)

// NoData marks a grid cell with no events.
const NoData = -9999

// DefaultGridCells is the number of cells along the longer side of a
// grid when no cell size is given.
const DefaultGridCells = 100

// Grid counts points per square cell over a rectangle.  Row 0 is the
// southernmost row.
type Grid struct {
	XMin, YMin float64
	CellSize   float64
	Cols, Rows int

	counts []int
}

// NewGrid creates an empty grid covering extent.  If cellSize is not
// positive, the cell size is chosen so the longer side of the extent
// has DefaultGridCells cells.
func NewGrid(extent restdata.Extent, cellSize float64) (*Grid, error) {
	width := extent.XMax - extent.XMin
	height := extent.YMax - extent.YMin
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("grid extent %v,%v,%v,%v is empty",
			extent.XMin, extent.YMin, extent.XMax, extent.YMax)
	}
	if cellSize <= 0 {
		cellSize = math.Max(width, height) / DefaultGridCells
	}
	g := &Grid{
		XMin:     extent.XMin,
		YMin:     extent.YMin,
		CellSize: cellSize,
		Cols:     int(math.Max(1, math.Ceil(width/cellSize))),
		Rows:     int(math.Max(1, math.Ceil(height/cellSize))),
	}
	g.counts = make([]int, g.Cols*g.Rows)
	return g, nil
}

// cell returns the column and row holding (x, y).
func (g *Grid) cell(x, y float64) (col, row int, ok bool) {
	col = int(math.Floor((x - g.XMin) / g.CellSize))
	row = int(math.Floor((y - g.YMin) / g.CellSize))
	ok = col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
	return
}

// Add counts one point.  Returns false if the point is outside the
// grid.
func (g *Grid) Add(x, y float64) bool {
	col, row, ok := g.cell(x, y)
	if ok {
		g.counts[row*g.Cols+col]++
	}
	return ok
}

// At returns the count in one cell.
func (g *Grid) At(col, row int) int {
	return g.counts[row*g.Cols+col]
}

// Total returns the number of points counted.
func (g *Grid) Total() int {
	total := 0
	for _, c := range g.counts {
		total += c
	}
	return total
}

// WriteASCII writes the grid in Esri ASCII raster format, northern
// row first.  Empty cells are written as NoData.
func (g *Grid) WriteASCII(w io.Writer) error {
	bw := bufio.NewWriter(w)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	fmt.Fprintf(bw, "ncols         %d\n", g.Cols)
	fmt.Fprintf(bw, "nrows         %d\n", g.Rows)
	fmt.Fprintf(bw, "xllcorner     %s\n", f(g.XMin))
	fmt.Fprintf(bw, "yllcorner     %s\n", f(g.YMin))
	fmt.Fprintf(bw, "cellsize      %s\n", f(g.CellSize))
	fmt.Fprintf(bw, "NODATA_value  %d\n", NoData)
	for row := g.Rows - 1; row >= 0; row-- {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := g.At(col, row)
			if v == 0 {
				v = NoData
			}
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ExtentGrid builds a density grid over extent from the centroids of
// every map request in an extent layer.
func (s *Store) ExtentGrid(ctx context.Context, layer string, extent restdata.Extent, cellSize float64) (*Grid, error) {
	records, err := s.Extents(ctx, layer)
	if err != nil {
		return nil, err
	}
	g, err := NewGrid(extent, cellSize)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		g.Add(r.Centroid())
	}
	return g, nil
}
