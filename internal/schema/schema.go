// Package schema holds the canonical column layout of the monthly indicator
// sheets and resolves arbitrary spreadsheet headers onto it.
package schema

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"climatemap/internal/util"
)

// Canonical column names.
const (
	Name            = "NAME_3"
	ModerateDrought = "Moderate Drought Index Triggered"
	SevereDrought   = "Severe Drought Index Triggered"
	ModerateFlood   = "Moderate Flood Index Trigerred"
	SevereFlood     = "Severe Flood Index Trigerred"
	Exposure        = "Exposure at Risk"
	Losses          = "Expected Losses"
)

// Kind tells downstream code which coercion and default a field gets.
type Kind string

const (
	KindIdentity  Kind = "identity"
	KindIndicator Kind = "indicator"
	KindMoney     Kind = "money"
)

type Field struct {
	Name    string   `yaml:"name"`
	Kind    Kind     `yaml:"kind"`
	Aliases []string `yaml:"aliases"`
}

// Schema is the ordered set of canonical fields. It is immutable once
// parsed; callers must not modify the slices it returns.
type Schema struct {
	fields []Field
}

//go:embed schema.yaml
var defaultYAML []byte

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// Default returns the embedded schema. It panics if the embedded document is
// invalid, which is a build defect rather than a runtime condition.
func Default() *Schema {
	defaultOnce.Do(func() {
		s, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("schema: embedded schema.yaml: %v", err))
		}
		defaultSchema = s
	})
	return defaultSchema
}

// Load reads a schema document from disk. An empty path means the embedded
// default.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document and validates it.
func Parse(data []byte) (*Schema, error) {
	var doc struct {
		Fields []Field `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if len(doc.Fields) == 0 {
		return nil, errors.New("schema has no fields")
	}

	seen := map[string]struct{}{}
	identities := 0
	for i, f := range doc.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Kind {
		case KindIdentity:
			identities++
		case KindIndicator, KindMoney:
		default:
			return nil, fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
		aliases := make([]string, 0, len(f.Aliases))
		for _, a := range f.Aliases {
			aliases = append(aliases, util.Normalize(a))
		}
		doc.Fields[i].Aliases = aliases
	}
	if identities != 1 {
		return nil, fmt.Errorf("schema needs exactly one identity field, got %d", identities)
	}

	return &Schema{fields: doc.Fields}, nil
}

func (s *Schema) Fields() []Field {
	return s.fields
}

// Field looks up a canonical field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Identity returns the field naming the administrative unit.
func (s *Schema) Identity() Field {
	for _, f := range s.fields {
		if f.Kind == KindIdentity {
			return f
		}
	}
	return Field{}
}

// OfKind returns the fields of one kind in declared order.
func (s *Schema) OfKind(kind Kind) []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Fingerprint identifies the resolved layout. Anything persisted from a
// standardized sheet is keyed by it so a schema change never serves stale
// rows.
func (s *Schema) Fingerprint() string {
	h := sha256.New()
	for _, f := range s.fields {
		fmt.Fprintf(h, "%s\x00%s\x00%s\n", f.Name, f.Kind, strings.Join(f.Aliases, "\x00"))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
