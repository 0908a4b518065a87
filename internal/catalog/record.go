// Package catalog owns the canonical dataset records: YAML "cards" stored one
// per file in the catalog directory. The search index holds only a derived,
// disposable projection of these records.
package catalog

import (
	"fmt"
	"regexp"
	"time"
)

// Record is the canonical unit of catalog data. The identifier is immutable
// after creation; every other field may change between versions.
type Record struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Source  string `yaml:"source,omitempty" json:"source,omitempty"`
	Format  string `yaml:"format,omitempty" json:"format,omitempty"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Storage string `yaml:"storage,omitempty" json:"storage,omitempty"`

	Tags     []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Projects []string `yaml:"projects,omitempty" json:"projects,omitempty"`

	// SizeBytes is the dataset payload size, not the card file size.
	SizeBytes int64 `yaml:"size_bytes,omitempty" json:"sizeBytes,omitempty"`

	// Calendar dates in YYYY-MM-DD form; empty means unknown.
	DateCreated  string `yaml:"date_created,omitempty" json:"dateCreated,omitempty"`
	DateModified string `yaml:"date_modified,omitempty" json:"dateModified,omitempty"`

	CreatedAt int64 `yaml:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt int64 `yaml:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks the invariants a record must satisfy before it may be
// stored or indexed.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record has no id")
	}
	if !idPattern.MatchString(r.ID) {
		return fmt.Errorf("record id %q contains unsupported characters", r.ID)
	}
	if r.Name == "" {
		return fmt.Errorf("record %s has no name", r.ID)
	}
	if r.SizeBytes < 0 {
		return fmt.Errorf("record %s has negative size", r.ID)
	}
	for _, d := range []string{r.DateCreated, r.DateModified} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("record %s has malformed date %q", r.ID, d)
		}
	}
	return nil
}
