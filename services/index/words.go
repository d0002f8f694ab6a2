package index

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/meghashyamc/recordstore/db"
)

// WordsBuilder indexes each record under every word of its source text, as
// produced by bleve's standard analyzer (unicode segmentation, lower-casing
// and English stop word removal).
type WordsBuilder struct {
	source   Extractor
	analyzer analysis.Analyzer
}

func NewWordsBuilder(source Extractor) (*WordsBuilder, error) {
	analyzer, err := registry.NewCache().AnalyzerNamed(standard.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s analyzer: %w", standard.Name, err)
	}
	return &WordsBuilder{source: source, analyzer: analyzer}, nil
}

func (b *WordsBuilder) Name() string {
	return BuilderWords
}

func (b *WordsBuilder) Build(records db.Collection) (*BuildResult, error) {
	if b.source == nil {
		return nil, errors.New("words builder has no source extractor")
	}

	result := NewBuildResult()
	for _, key := range records.Keys() {
		texts, err := deriveKeys(b.source, records[key])
		if err != nil {
			result.Skip(key, err.Error())
			continue
		}

		seen := make(map[string]struct{})
		for _, text := range texts {
			for _, token := range b.analyzer.Analyze([]byte(text)) {
				word := string(token.Term)
				if _, ok := seen[word]; ok {
					continue
				}
				seen[word] = struct{}{}
				result.Add(word, records[key])
			}
		}
	}
	return result, nil
}
