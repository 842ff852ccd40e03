package ontology

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// InitialVersion is the semantic version of a freshly proposed package.
const InitialVersion = "0.1.0"

// Entity is a concept of an ontology package.
type Entity struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Relation links two entities.
type Relation struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// Package is the state of an ontology as exchanged with clients.
type Package struct {
	OntologyID      string     `json:"ontology_id,omitempty"`
	Title           string     `json:"title,omitempty"`
	SemanticVersion string     `json:"semantic_version"`
	Entities        []Entity   `json:"entities"`
	Relations       []Relation `json:"relations"`
}

// FromMap decodes a package from an open metadata value.
func FromMap(v map[string]any) (*Package, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.SemanticVersion == "" {
		p.SemanticVersion = InitialVersion
	}
	if p.Entities == nil {
		p.Entities = []Entity{}
	}
	if p.Relations == nil {
		p.Relations = []Relation{}
	}
	return &p, nil
}

// ToMap encodes the package as an open metadata value.
func (p *Package) ToMap() map[string]any {
	data, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// Clone returns a deep copy.
func (p *Package) Clone() *Package {
	c := *p
	c.Entities = slices.Clone(p.Entities)
	c.Relations = slices.Clone(p.Relations)
	if c.Entities == nil {
		c.Entities = []Entity{}
	}
	if c.Relations == nil {
		c.Relations = []Relation{}
	}
	return &c
}

// EntityNames returns the entity names in order.
func (p *Package) EntityNames() []string {
	names := make([]string, 0, len(p.Entities))
	for _, e := range p.Entities {
		names = append(names, e.Name)
	}
	return names
}

// HasEntity reports whether an entity with the name exists, ignoring case.
func (p *Package) HasEntity(name string) bool {
	return slices.ContainsFunc(p.Entities, func(e Entity) bool {
		return strings.EqualFold(e.Name, name)
	})
}

// BumpMinor increments the minor component of a semantic version and resets the patch.
// Malformed versions restart from InitialVersion.
func BumpMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return InitialVersion
	}

	major, errMajor := strconv.Atoi(parts[0])
	minor, errMinor := strconv.Atoi(parts[1])
	if errMajor != nil || errMinor != nil {
		return InitialVersion
	}

	return fmt.Sprintf("%d.%d.0", major, minor+1)
}

// Diff describes the entity changes from old to updated.
func Diff(old, updated *Package) string {
	var added, removed []string
	for _, e := range updated.Entities {
		if !old.HasEntity(e.Name) {
			added = append(added, e.Name)
		}
	}
	for _, e := range old.Entities {
		if !updated.HasEntity(e.Name) {
			removed = append(removed, e.Name)
		}
	}

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "added "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "removed "+strings.Join(removed, ", "))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("no entity changes (%d entities)", len(updated.Entities))
	}
	return strings.Join(parts, "; ")
}
