package index

import (
	"errors"
	"maps"
	"slices"

	"github.com/meghashyamc/recordstore/db"
)

// TrigramBuilder indexes each record under every trigram of the strings its
// source extractor derives. A record is added once per trigram even when the
// trigram repeats.
type TrigramBuilder struct {
	source Extractor
}

func NewTrigramBuilder(source Extractor) *TrigramBuilder {
	return &TrigramBuilder{source: source}
}

func (b *TrigramBuilder) Name() string {
	return BuilderTrigram
}

func (b *TrigramBuilder) Build(records db.Collection) (*BuildResult, error) {
	if b.source == nil {
		return nil, errors.New("trigram builder has no source extractor")
	}

	result := NewBuildResult()
	for _, key := range records.Keys() {
		sources, err := deriveKeys(b.source, records[key])
		if err != nil {
			result.Skip(key, err.Error())
			continue
		}

		input := make(map[string]db.Record, len(sources))
		for _, source := range sources {
			input[source] = records[key]
		}

		for _, gram := range slices.Sorted(maps.Keys(Tokenize(input))) {
			result.Add(gram, records[key])
		}
	}
	return result, nil
}
