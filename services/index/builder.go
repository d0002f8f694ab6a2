package index

import (
	"fmt"
	"maps"
	"slices"

	"github.com/meghashyamc/recordstore/db"
)

const (
	BuilderKey       = "key"
	BuilderField     = "field"
	BuilderAlias     = "alias"
	BuilderRecursive = "recursive"
	BuilderTrigram   = "trigram"
	BuilderWords     = "words"
)

// Builder derives raw (not yet normalized) keys from a record collection.
// Builders must not share mutable state: a rebuild runs them concurrently.
type Builder interface {
	Name() string
	Build(records db.Collection) (*BuildResult, error)
}

// BuildResult is the isolated output of a single builder run.
type BuildResult struct {
	keys     []string
	postings map[string][]db.Record
	skipped  []SkippedRecord
}

func NewBuildResult() *BuildResult {
	return &BuildResult{postings: make(map[string][]db.Record)}
}

// Add appends records to the ones already collected under rawKey.
func (r *BuildResult) Add(rawKey string, records ...db.Record) {
	if _, ok := r.postings[rawKey]; !ok {
		r.keys = append(r.keys, rawKey)
	}
	r.postings[rawKey] = append(r.postings[rawKey], records...)
}

// Set replaces whatever was collected under rawKey with a single record.
func (r *BuildResult) Set(rawKey string, record db.Record) {
	if _, ok := r.postings[rawKey]; !ok {
		r.keys = append(r.keys, rawKey)
	}
	r.postings[rawKey] = []db.Record{record}
}

func (r *BuildResult) Skip(key string, reason string) {
	r.skipped = append(r.skipped, SkippedRecord{Key: key, Reason: reason})
}

// Keys returns the raw keys in the order they were first produced.
func (r *BuildResult) Keys() []string {
	return slices.Clone(r.keys)
}

func (r *BuildResult) Get(rawKey string) ([]db.Record, bool) {
	records, ok := r.postings[rawKey]
	return records, ok
}

func (r *BuildResult) Len() int {
	return len(r.keys)
}

func (r *BuildResult) Skipped() []SkippedRecord {
	return slices.Clone(r.skipped)
}

// BuilderParams carries the configuration-level parameters of a builder.
type BuilderParams struct {
	Field    string
	Property string
}

type Factory func(params BuilderParams) (Builder, error)

// Builders is the table of strategies available to index specs, keyed by
// builder name. It is passed in at configuration time.
type Builders map[string]Factory

func DefaultBuilders() Builders {
	return Builders{
		BuilderKey: func(BuilderParams) (Builder, error) {
			return NewKeyBuilder(), nil
		},
		BuilderField: func(params BuilderParams) (Builder, error) {
			if params.Field == "" {
				return nil, &db.ConfigurationError{Field: "field", Reason: "field builder needs a field"}
			}
			return NewFieldBuilder(FieldExtractor(params.Field)), nil
		},
		BuilderAlias: func(BuilderParams) (Builder, error) {
			return NewAliasBuilder(), nil
		},
		BuilderRecursive: func(params BuilderParams) (Builder, error) {
			if params.Property == "" {
				return nil, &db.ConfigurationError{Field: "property", Reason: "recursive builder needs a property"}
			}
			return NewRecursiveBuilder(params.Property), nil
		},
		BuilderTrigram: func(params BuilderParams) (Builder, error) {
			if params.Field == "" {
				return nil, &db.ConfigurationError{Field: "field", Reason: "trigram builder needs a field"}
			}
			return NewTrigramBuilder(FieldExtractor(params.Field)), nil
		},
		BuilderWords: func(params BuilderParams) (Builder, error) {
			if params.Field == "" {
				return nil, &db.ConfigurationError{Field: "field", Reason: "words builder needs a field"}
			}
			return NewWordsBuilder(FieldExtractor(params.Field))
		},
	}
}

func (b Builders) New(name string, params BuilderParams) (Builder, error) {
	factory, ok := b[name]
	if !ok {
		return nil, &db.ConfigurationError{Field: "builder", Reason: fmt.Sprintf("unknown builder %q", name)}
	}
	return factory(params)
}

// Names returns the registered builder names in lexical order.
func (b Builders) Names() []string {
	return slices.Sorted(maps.Keys(b))
}
