package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"climatemap/internal"
)

var ErrNoNameField = errors.New("no unit name field in boundary features")

// NameFields are the accepted spellings of the unit name attribute, in
// lookup order.
var NameFields = []string{"NAME_3", "name_3", "Name_3", "NAME3"}

// NameFix overrides the name of the unit at a fixed position. The reference
// boundary file misspells one unit. A negative Index disables the fix.
type NameFix struct {
	Index int
	Value string
}

var DefaultNameFix = NameFix{Index: 195, Value: "Fada N'gourma"}

type Boundaries struct {
	Units     []internal.BoundaryUnit
	NameField string
	Hash      string
}

func LoadBoundaries(path string, fix NameFix) (*Boundaries, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := decodeBoundaries(content, fix)
	if err != nil {
		return nil, fmt.Errorf("load boundaries %s: %w", path, err)
	}
	return b, nil
}

func DecodeBoundaries(r io.Reader, fix NameFix) (*Boundaries, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeBoundaries(content, fix)
}

func decodeBoundaries(content []byte, fix NameFix) (*Boundaries, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(content, &fc); err != nil {
		return nil, err
	}

	field := nameField(fc.Features)
	if field == "" {
		return nil, ErrNoNameField
	}

	units := make([]internal.BoundaryUnit, len(fc.Features))
	for i, f := range fc.Features {
		units[i] = internal.BoundaryUnit{
			Index:      i,
			Name:       strings.TrimSpace(propertyText(f.Properties[field])),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		}
	}
	if fix.Index >= 0 && fix.Index < len(units) {
		units[fix.Index].Name = strings.TrimSpace(fix.Value)
	}

	return &Boundaries{Units: units, NameField: field, Hash: ContentHash(content)}, nil
}

// nameField picks the first accepted spelling carried by any feature.
func nameField(features []*geojson.Feature) string {
	for _, candidate := range NameFields {
		for _, f := range features {
			if _, ok := f.Properties[candidate]; ok {
				return candidate
			}
		}
	}
	return ""
}

func propertyText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(t)
	}
}

// Bounds is the union of all unit geometries. Units without geometry are
// ignored.
func (b *Boundaries) Bounds() *geom.Bounds {
	bounds := geom.NewBounds(geom.XY)
	for _, u := range b.Units {
		if u.Geometry == nil {
			continue
		}
		bounds.Extend(u.Geometry)
	}
	return bounds
}

// Center returns the middle of Bounds as (lat, lon), or the fallback when
// there is no geometry at all.
func (b *Boundaries) Center(fallbackLat, fallbackLon float64) (float64, float64) {
	bounds := b.Bounds()
	if bounds.IsEmpty() {
		return fallbackLat, fallbackLon
	}
	lon := (bounds.Min(0) + bounds.Max(0)) / 2
	lat := (bounds.Min(1) + bounds.Max(1)) / 2
	return lat, lon
}

func (b *Boundaries) Names() []string {
	out := make([]string, len(b.Units))
	for i, u := range b.Units {
		out[i] = u.Name
	}
	return out
}
