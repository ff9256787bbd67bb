package schema

import (
	"strings"

	"climatemap/internal/util"
)

// Mapping is the result of resolving one header row against a Schema.
type Mapping struct {
	headers []string
	fields  []string
	columns map[string]int
}

// Resolve maps spreadsheet headers onto canonical fields. For each field, in
// declared order, a header equal to the canonical name wins; otherwise the
// first alias, in declared order, that some header matches. Matching uses
// util.Normalize on both sides. When several headers normalize to the same
// text the last one is used. If two fields claim the same header the later
// field keeps it. Unresolved fields are simply absent.
func (s *Schema) Resolve(headers []string) Mapping {
	byNorm := make(map[string]int, len(headers))
	for i, h := range headers {
		byNorm[util.Normalize(h)] = i
	}

	claimed := map[int]string{}
	for _, f := range s.fields {
		idx, ok := byNorm[util.Normalize(f.Name)]
		if !ok {
			for _, alias := range f.Aliases {
				if idx, ok = byNorm[alias]; ok {
					break
				}
			}
		}
		if ok {
			claimed[idx] = f.Name
		}
	}

	m := Mapping{
		headers: append([]string(nil), headers...),
		fields:  make([]string, 0, len(s.fields)),
		columns: make(map[string]int, len(claimed)),
	}
	for _, f := range s.fields {
		m.fields = append(m.fields, f.Name)
	}
	for idx, name := range claimed {
		m.columns[name] = idx
	}
	return m
}

// Column returns the header index resolved for a canonical field.
func (m Mapping) Column(canonical string) (int, bool) {
	idx, ok := m.columns[canonical]
	return idx, ok
}

// Has reports whether a canonical field was resolved.
func (m Mapping) Has(canonical string) bool {
	_, ok := m.columns[canonical]
	return ok
}

// Present lists resolved canonical fields in schema order.
func (m Mapping) Present() []string {
	out := make([]string, 0, len(m.columns))
	for _, name := range m.fields {
		if m.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Missing lists canonical fields no header resolved to, in schema order.
func (m Mapping) Missing() []string {
	out := []string{}
	for _, name := range m.fields {
		if !m.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Renames maps each kept original header to its canonical name.
func (m Mapping) Renames() map[string]string {
	out := make(map[string]string, len(m.columns))
	for name, idx := range m.columns {
		out[m.headers[idx]] = name
	}
	return out
}

func (m Mapping) String() string {
	parts := make([]string, 0, len(m.columns))
	for _, name := range m.Present() {
		parts = append(parts, m.headers[m.columns[name]]+" -> "+name)
	}
	return strings.Join(parts, ", ")
}

// Headers returns the header row the mapping was resolved from.
func (m Mapping) Headers() []string {
	return append([]string(nil), m.headers...)
}
