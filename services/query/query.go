package query

import (
	"slices"

	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/meghashyamc/recordstore/services/index"
)

const (
	SystemIndexes  = "indexes"
	SystemMetadata = "metadata"
)

// Indexes is the read side of the index registry.
type Indexes interface {
	Index(name string) (*index.Index, bool)
	Names() []string
	Comparator(name string) (index.Comparator, bool)
}

// RecordSource exposes the store's current collection and metadata.
type RecordSource interface {
	Records() db.Collection
	Metadata() db.Metadata
}

type Options struct {
	// Sort is +1 for ascending, -1 for descending and 0 to leave keys in
	// lexical order. It only applies when the target has a comparator.
	Sort    int
	Limit   int
	Offset  int
	Hydrate bool
}

// Listing is the result of ListKeys: terms, or records once hydrated.
type Listing struct {
	Keys    []string    `json:"keys,omitempty"`
	Records []db.Record `json:"records,omitempty"`
}

type Service struct {
	logger  logger.Logger
	indexes Indexes
	source  RecordSource
}

func New(logger logger.Logger, indexes Indexes, source RecordSource) *Service {
	return &Service{
		logger:  logger,
		indexes: indexes,
		source:  source,
	}
}

// Get returns the groups stored under rawKey once normalized. An unknown
// index or term is reported as absent, not as an error.
func (s *Service) Get(indexName string, rawKey string) ([]index.Group, bool) {
	idx, ok := s.indexes.Index(indexName)
	if !ok {
		return nil, false
	}
	return idx.Lookup(index.Normalize(rawKey))
}

// ListKeys resolves target against the system facilities, then the index
// registry, then the record collection.
func (s *Service) ListKeys(target string, options Options) (*Listing, error) {
	keys, idx, err := s.resolve(target)
	if err != nil {
		s.logger.Warn("could not list keys", "target", target, "err", err.Error())
		return nil, err
	}

	if options.Sort != 0 {
		if comparator, ok := s.indexes.Comparator(target); ok && idx != nil {
			slices.SortStableFunc(keys, (func(a, b string) int)(comparator))
			if options.Sort < 0 {
				slices.Reverse(keys)
			}
		}
	}

	keys = paginate(keys, options.Limit, options.Offset)

	if !options.Hydrate {
		return &Listing{Keys: keys}, nil
	}
	if idx == nil {
		return nil, &db.InvalidArgumentError{Argument: "hydrate", Reason: target + " is not an index"}
	}

	records := make([]db.Record, 0, len(keys))
	for _, key := range keys {
		groups, _ := idx.Lookup(key)
		for _, group := range groups {
			records = append(records, group...)
		}
	}
	return &Listing{Records: records}, nil
}

func (s *Service) resolve(target string) ([]string, *index.Index, error) {
	switch target {
	case SystemIndexes:
		return s.indexes.Names(), nil, nil
	case SystemMetadata:
		return s.source.Metadata().Fields(), nil, nil
	}

	if idx, ok := s.indexes.Index(target); ok {
		return idx.Terms(), idx, nil
	}

	if record, ok := s.source.Records()[target]; ok {
		return record.Fields(), nil, nil
	}

	return nil, nil, &db.NotFoundError{Target: target}
}

func paginate(keys []string, limit int, offset int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(keys) {
		return []string{}
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	return keys
}
