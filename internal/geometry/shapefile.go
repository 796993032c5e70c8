package geometry

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"github.com/twpayne/go-geom/xy"
)

// LoadShapefile reads the boundaries shapefile at path and converts each
// polygon into a WKT MULTIPOLYGON keyed by the idField attribute.
func LoadShapefile(path, idField string) (*Index, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	idCol := -1
	for i, f := range r.Fields() {
		if f.String() == idField {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("shapefile %s: no attribute %q", path, idField)
	}

	ix := NewIndex()
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			// Community area layers hold polygons only.
			continue
		}

		mp, err := multiPolygon(poly)
		if err != nil {
			return nil, fmt.Errorf("shapefile %s record %d: %w", path, n, err)
		}
		text, err := wkt.Marshal(mp)
		if err != nil {
			return nil, fmt.Errorf("shapefile %s record %d: %w", path, n, err)
		}
		ix.Add(NormalizeID(r.ReadAttribute(n, idCol)), text)
	}
	return ix, nil
}

// multiPolygon splits the flat point list into rings. Shapefile outer rings
// run clockwise; a counter-clockwise ring is a hole in the polygon before it.
func multiPolygon(poly *shp.Polygon) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	var rings [][]geom.Coord

	flush := func() error {
		if len(rings) == 0 {
			return nil
		}
		p, err := geom.NewPolygon(geom.XY).SetCoords(rings)
		if err != nil {
			return err
		}
		rings = nil
		return mp.Push(p)
	}

	numParts := len(poly.Parts)
	for partIdx := 0; partIdx < numParts; partIdx++ {
		start := poly.Parts[partIdx]
		end := int32(len(poly.Points))
		if partIdx+1 < numParts {
			end = poly.Parts[partIdx+1]
		}

		ring := make([]geom.Coord, 0, end-start)
		flat := make([]float64, 0, 2*(end-start))
		for i := start; i < end; i++ {
			pt := poly.Points[i]
			ring = append(ring, geom.Coord{pt.X, pt.Y})
			flat = append(flat, pt.X, pt.Y)
		}
		if len(ring) < 4 {
			continue
		}

		hole := xy.IsRingCounterClockwise(geom.XY, flat)
		if !hole || len(rings) == 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		rings = append(rings, ring)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return mp, nil
}
