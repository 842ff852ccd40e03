package workflow

import (
	"regexp"
	"slices"
	"strings"

	"github.com/hitesh22rana/runstream/internal/model/ontology"
)

var (
	addPattern    = regexp.MustCompile(`(?i)\badd(?:\s+(?:an?|the))?(?:\s+entit(?:y|ies))?\s+([^.;!?]+)`)
	removePattern = regexp.MustCompile(`(?i)\bremove(?:\s+the)?(?:\s+entit(?:y|ies))?\s+([^.;!?]+)`)
	listSeparator = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)
)

// applyInstructions applies "add X, Y and Z" and "remove X" sentences of a user message.
func applyInstructions(pkg *ontology.Package, text string) *ontology.Package {
	for _, name := range matchNames(addPattern, text) {
		if !pkg.HasEntity(name) {
			pkg.Entities = append(pkg.Entities, ontology.Entity{Name: name})
		}
	}

	for _, name := range matchNames(removePattern, text) {
		pkg.Entities = slices.DeleteFunc(pkg.Entities, func(e ontology.Entity) bool {
			return strings.EqualFold(e.Name, name)
		})
		pkg.Relations = slices.DeleteFunc(pkg.Relations, func(rel ontology.Relation) bool {
			return strings.EqualFold(rel.From, name) || strings.EqualFold(rel.To, name)
		})
	}

	return pkg
}

func matchNames(pattern *regexp.Regexp, text string) []string {
	var names []string
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		for _, part := range listSeparator.Split(m[1], -1) {
			if name := strings.TrimSpace(part); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// seedEntities returns the entity names listed in the run inputs.
func seedEntities(inputs map[string]any) []string {
	raw, ok := inputs["entities"].([]any)
	if !ok {
		return nil
	}

	var names []string
	for _, v := range raw {
		switch e := v.(type) {
		case string:
			names = append(names, e)
		case map[string]any:
			if name, ok := e["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// laterVersion returns the greater of two semantic versions.
func laterVersion(a, b string) string {
	if compareVersions(a, b) >= 0 {
		return a
	}
	return b
}

func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(pa), len(pb)) {
		var va, vb string
		if i < len(pa) {
			va = pa[i]
		}
		if i < len(pb) {
			vb = pb[i]
		}
		if len(va) != len(vb) {
			if len(va) < len(vb) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(va, vb); c != 0 {
			return c
		}
	}
	return 0
}
