// Package schema declares the catalog's searchable fields and their types.
// Field types are resolved once at parse time so the execution engine can
// switch exhaustively instead of branching on field-name strings.
package schema

import (
	"sort"
	"strings"
)

// FieldType tags how a field's values compare.
type FieldType int

const (
	Text FieldType = iota
	Numeric
	Date
)

// String returns the type name for logs and errors.
func (t FieldType) String() string {
	switch t {
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	case Date:
		return "date"
	}
	return "unknown"
}

// Field describes one searchable catalog field.
type Field struct {
	// Name is the canonical identifier used in query syntax.
	Name string
	Type FieldType
	// Column is the index-store column the field's filters evaluate against.
	Column string
	// Aliases are alternative query identifiers (e.g. "created" for "date_created").
	Aliases []string
	// Suggest marks fields whose distinct values feed autocomplete.
	Suggest bool
}

// Registry maps query identifiers to fields. The set is extensible, not
// closed: adding a field here is the only change needed for parse, filter
// and autocomplete support.
type Registry struct {
	fields []Field
	byName map[string]Field
}

// NewRegistry builds a registry from a field list. Canonical names and
// aliases share one namespace; lookups are case-insensitive.
func NewRegistry(fields []Field) *Registry {
	r := &Registry{
		fields: fields,
		byName: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		r.byName[strings.ToLower(f.Name)] = f
		for _, a := range f.Aliases {
			r.byName[strings.ToLower(a)] = f
		}
	}
	return r
}

// Default returns the registry for dataset catalog records.
func Default() *Registry {
	return NewRegistry([]Field{
		{Name: "name", Type: Text, Column: "name", Suggest: true},
		{Name: "description", Type: Text, Column: "description"},
		{Name: "source", Type: Text, Column: "source", Suggest: true},
		{Name: "format", Type: Text, Column: "format", Suggest: true},
		{Name: "type", Type: Text, Column: "type", Suggest: true},
		{Name: "storage", Type: Text, Column: "storage", Suggest: true},
		{Name: "tag", Type: Text, Column: "tags", Aliases: []string{"tags"}, Suggest: true},
		{Name: "project", Type: Text, Column: "projects", Aliases: []string{"projects"}, Suggest: true},
		{Name: "size", Type: Numeric, Column: "size"},
		{Name: "date_created", Type: Date, Column: "date_created", Aliases: []string{"created"}},
		{Name: "date_modified", Type: Date, Column: "date_modified", Aliases: []string{"modified"}},
	})
}

// Lookup resolves a query identifier to its field.
func (r *Registry) Lookup(name string) (Field, bool) {
	f, ok := r.byName[strings.ToLower(name)]
	return f, ok
}

// Fields returns the declared fields in registration order.
func (r *Registry) Fields() []Field {
	return r.fields
}

// Identifiers returns every recognized query identifier, canonical names and
// aliases alike, sorted for deterministic autocomplete.
func (r *Registry) Identifiers() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
