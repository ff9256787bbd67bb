package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square is a unit polygon feature with its lower-left corner at (x, y).
func square(props map[string]any, x, y float64) map[string]any {
	ring := [][]float64{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}
	return map[string]any{
		"type":       "Feature",
		"properties": props,
		"geometry":   map[string]any{"type": "Polygon", "coordinates": [][][]float64{ring}},
	}
}

func mkGeoJSON(features ...map[string]any) []byte {
	blob, _ := json.Marshal(map[string]any{"type": "FeatureCollection", "features": features})
	return blob
}

func namedUnits(field string, names ...string) []byte {
	features := make([]map[string]any, len(names))
	for i, n := range names {
		features[i] = square(map[string]any{field: n}, float64(i), 0)
	}
	return mkGeoJSON(features...)
}

func TestDecodeBoundaries_NameFieldVariants(t *testing.T) {
	for _, field := range NameFields {
		t.Run(field, func(t *testing.T) {
			b, err := DecodeBoundaries(bytes.NewReader(namedUnits(field, " Banfora ", "Gaoua")), DefaultNameFix)
			require.NoError(t, err)
			assert.Equal(t, field, b.NameField)
			assert.Equal(t, []string{"Banfora", "Gaoua"}, b.Names())
		})
	}
}

func TestDecodeBoundaries_PrefersCanonicalField(t *testing.T) {
	blob := mkGeoJSON(square(map[string]any{"name_3": "wrong", "NAME_3": "right"}, 0, 0))
	b, err := DecodeBoundaries(bytes.NewReader(blob), DefaultNameFix)
	require.NoError(t, err)
	assert.Equal(t, "NAME_3", b.NameField)
	assert.Equal(t, []string{"right"}, b.Names())
}

func TestDecodeBoundaries_NoNameField(t *testing.T) {
	blob := mkGeoJSON(square(map[string]any{"NAME_2": "Comoé"}, 0, 0))
	_, err := DecodeBoundaries(bytes.NewReader(blob), DefaultNameFix)
	assert.True(t, errors.Is(err, ErrNoNameField))
}

func TestDecodeBoundaries_NonStringNames(t *testing.T) {
	blob := mkGeoJSON(
		square(map[string]any{"NAME_3": 42.0}, 0, 0),
		square(map[string]any{"NAME_3": nil}, 1, 0),
		square(map[string]any{"other": "x"}, 2, 0),
	)
	b, err := DecodeBoundaries(bytes.NewReader(blob), DefaultNameFix)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "", ""}, b.Names())
}

func TestDecodeBoundaries_NameFixApplied(t *testing.T) {
	names := make([]string, 200)
	for i := range names {
		names[i] = fmt.Sprintf("unit-%d", i)
	}
	b, err := DecodeBoundaries(bytes.NewReader(namedUnits("NAME_3", names...)), DefaultNameFix)
	require.NoError(t, err)

	assert.Equal(t, "Fada N'gourma", b.Units[195].Name)
	assert.Equal(t, "unit-194", b.Units[194].Name)
	assert.Equal(t, "unit-196", b.Units[196].Name)
	assert.Equal(t, "unit-195", b.Units[195].Properties["NAME_3"])
}

func TestDecodeBoundaries_NameFixOutOfRange(t *testing.T) {
	names := make([]string, 195)
	for i := range names {
		names[i] = fmt.Sprintf("unit-%d", i)
	}
	b, err := DecodeBoundaries(bytes.NewReader(namedUnits("NAME_3", names...)), DefaultNameFix)
	require.NoError(t, err)
	assert.Len(t, b.Units, 195)
	assert.NotContains(t, b.Names(), "Fada N'gourma")

	disabled, err := DecodeBoundaries(bytes.NewReader(namedUnits("NAME_3", "a", "b")), NameFix{Index: -1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, disabled.Names())
}

func TestBoundaries_BoundsAndCenter(t *testing.T) {
	b, err := DecodeBoundaries(bytes.NewReader(mkGeoJSON(
		square(map[string]any{"NAME_3": "a"}, -5, 10),
		square(map[string]any{"NAME_3": "b"}, 1, 14),
	)), DefaultNameFix)
	require.NoError(t, err)

	bounds := b.Bounds()
	assert.InDelta(t, -5.0, bounds.Min(0), 1e-9)
	assert.InDelta(t, 2.0, bounds.Max(0), 1e-9)
	assert.InDelta(t, 10.0, bounds.Min(1), 1e-9)
	assert.InDelta(t, 15.0, bounds.Max(1), 1e-9)

	lat, lon := b.Center(12.5, -1.5)
	assert.InDelta(t, 12.5, lat, 1e-9)
	assert.InDelta(t, -1.5, lon, 1e-9)
}

func TestBoundaries_CenterFallback(t *testing.T) {
	blob := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_3":"a"},"geometry":null}]}`)
	b, err := DecodeBoundaries(bytes.NewReader(blob), DefaultNameFix)
	require.NoError(t, err)
	assert.Nil(t, b.Units[0].Geometry)

	lat, lon := b.Center(12.5, -1.5)
	assert.InDelta(t, 12.5, lat, 1e-9)
	assert.InDelta(t, -1.5, lon, 1e-9)
}

func TestLoadBoundaries(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "units.json", namedUnits("NAME_3", "A"))

	b, err := LoadBoundaries(path, DefaultNameFix)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, b.Names())
	assert.NotEmpty(t, b.Hash)

	bad := writeFile(t, dir, "bad.json", []byte("{"))
	_, err = LoadBoundaries(bad, DefaultNameFix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	_, err = LoadBoundaries(filepath.Join(dir, "missing.json"), DefaultNameFix)
	assert.Error(t, err)
}
