package index

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/meghashyamc/recordstore/db"
)

const DefaultMaxRecursionDepth = 64

// RecursiveBuilder flattens a tree of records linked through a nested
// property into one key space. Deeper entries overwrite shallower entries
// recorded under the same key; at equal depth the last one walked wins.
type RecursiveBuilder struct {
	property string
	maxDepth int
}

func NewRecursiveBuilder(property string) *RecursiveBuilder {
	return &RecursiveBuilder{property: property, maxDepth: DefaultMaxRecursionDepth}
}

// WithMaxDepth bounds how many nested levels below the top level are walked.
func (b *RecursiveBuilder) WithMaxDepth(depth int) *RecursiveBuilder {
	b.maxDepth = depth
	return b
}

func (b *RecursiveBuilder) Name() string {
	return BuilderRecursive
}

func (b *RecursiveBuilder) Build(records db.Collection) (*BuildResult, error) {
	if b.property == "" {
		return nil, fmt.Errorf("recursive builder has no property")
	}

	top := make(map[string]any, len(records))
	for key, record := range records {
		top[key] = record
	}

	w := &walker{
		property: b.property,
		maxDepth: b.maxDepth,
		visited:  make(map[uintptr]struct{}),
		depths:   make(map[string]int),
		result:   NewBuildResult(),
	}
	w.walk(top, 0)

	return w.result, nil
}

type walker struct {
	property string
	maxDepth int
	visited  map[uintptr]struct{}
	depths   map[string]int
	result   *BuildResult
}

func (w *walker) walk(entries map[string]any, depth int) {
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		entry, ok := asRecord(entries[key])
		if !ok {
			w.result.Skip(key, fmt.Sprintf("entry is %T, not an object", entries[key]))
			continue
		}
		if recorded, ok := w.depths[key]; !ok || depth >= recorded {
			w.depths[key] = depth
			w.result.Set(key, entry)
		}

		nested, ok := asMap(entry[w.property])
		if !ok || len(nested) == 0 {
			continue
		}

		id := reflect.ValueOf(nested).Pointer()
		if _, seen := w.visited[id]; seen {
			w.result.Skip(key, "cycle detected under "+w.property)
			continue
		}
		if depth+1 > w.maxDepth {
			w.result.Skip(key, fmt.Sprintf("nesting deeper than %d levels", w.maxDepth))
			continue
		}

		w.visited[id] = struct{}{}
		w.walk(nested, depth+1)
	}
}

func asRecord(value any) (db.Record, bool) {
	switch v := value.(type) {
	case db.Record:
		return v, v != nil
	case map[string]any:
		return db.Record(v), v != nil
	default:
		return nil, false
	}
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case db.Record:
		return v, true
	case db.Collection:
		nested := make(map[string]any, len(v))
		for key, record := range v {
			nested[key] = record
		}
		return nested, true
	default:
		return nil, false
	}
}
