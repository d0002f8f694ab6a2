package search

import (
	"cmp"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/meghashyamc/recordstore/metrics"
	"github.com/meghashyamc/recordstore/services/index"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCacheSize   = 256
	DefaultConcurrency = 8
)

// Indexes is the part of the index registry search reads from.
type Indexes interface {
	Index(name string) (*index.Index, bool)
	Generation() uint64
}

type Config struct {
	// CacheSize is the number of result sets kept; a negative size disables
	// caching and zero picks the default.
	CacheSize int
	// Concurrency bounds the number of term lookups in flight.
	Concurrency int
}

// RankedCandidate is a record found by a search, with the number of distinct
// query terms that reached it.
type RankedCandidate struct {
	Record      db.Record `json:"record"`
	MatchCount  int       `json:"match_count"`
	TieBreakKey string    `json:"key"`
}

type cacheKey struct {
	generation uint64
	index      string
	query      string
	keyField   string
	limit      int
}

type Service struct {
	logger      logger.Logger
	indexes     Indexes
	metrics     *metrics.Metrics
	cache       *lru.Cache[cacheKey, []RankedCandidate]
	concurrency int
}

func New(logger logger.Logger, indexes Indexes, metrics *metrics.Metrics, config Config) (*Service, error) {
	service := &Service{
		logger:      logger,
		indexes:     indexes,
		metrics:     metrics,
		concurrency: config.Concurrency,
	}
	if service.concurrency <= 0 {
		service.concurrency = DefaultConcurrency
	}

	cacheSize := config.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, []RankedCandidate](cacheSize)
		if err != nil {
			logger.Error("could not create search cache", "size", cacheSize, "err", err.Error())
			return nil, err
		}
		service.cache = cache
	}

	return service, nil
}

// Search returns the records of indexName that share trigrams with query,
// best match first. A limit of zero or less returns every match.
func (s *Service) Search(indexName string, query string, keyField string, limit int) ([]db.Record, error) {
	candidates, err := s.SearchRanked(indexName, query, keyField, limit)
	if err != nil {
		return nil, err
	}

	records := make([]db.Record, len(candidates))
	for i, candidate := range candidates {
		records[i] = candidate.Record
	}
	return records, nil
}

// SearchRanked is Search with match counts. A missing index yields no
// candidates rather than an error.
func (s *Service) SearchRanked(indexName string, query string, keyField string, limit int) ([]RankedCandidate, error) {
	start := time.Now()

	if query == "" {
		s.metrics.ObserveSearch(metrics.ResultError, time.Since(start))
		return nil, &db.InvalidArgumentError{Argument: "query", Reason: "query cannot be empty"}
	}
	if indexName == "" {
		s.metrics.ObserveSearch(metrics.ResultError, time.Since(start))
		return nil, &db.InvalidArgumentError{Argument: "index", Reason: "index name cannot be empty"}
	}
	if keyField == "" {
		s.metrics.ObserveSearch(metrics.ResultError, time.Since(start))
		return nil, &db.InvalidArgumentError{Argument: "key_field", Reason: "key field cannot be empty"}
	}

	key := cacheKey{
		generation: s.indexes.Generation(),
		index:      indexName,
		query:      query,
		keyField:   keyField,
		limit:      limit,
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.CacheHit()
			s.metrics.ObserveSearch(metrics.ResultHit, time.Since(start))
			return slices.Clone(cached), nil
		}
		s.metrics.CacheMiss()
	}

	idx, ok := s.indexes.Index(indexName)
	if !ok {
		s.logger.Debug("search on unknown index", "index", indexName)
		s.metrics.ObserveSearch(metrics.ResultZeroResult, time.Since(start))
		return []RankedCandidate{}, nil
	}

	terms := queryTerms(query)
	matches := newAggregator(keyField)

	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for _, term := range terms {
		group.Go(func() error {
			groups, ok := idx.Lookup(term)
			if ok {
				matches.add(term, groups)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.logger.Error("search failed", "index", indexName, "err", err.Error())
		s.metrics.ObserveSearch(metrics.ResultError, time.Since(start))
		return nil, err
	}

	if matches.unkeyed > 0 {
		s.logger.Warn("matched records without a key field were ignored", "index", indexName, "key_field", keyField, "count", matches.unkeyed)
	}

	candidates := matches.rank()
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if s.cache != nil {
		s.cache.Add(key, slices.Clone(candidates))
	}

	resultType := metrics.ResultMiss
	if len(candidates) == 0 {
		resultType = metrics.ResultZeroResult
	}
	s.metrics.ObserveSearch(resultType, time.Since(start))

	return candidates, nil
}

// queryTerms tokenizes the whole query as one source string and returns the
// distinct normalized trigrams.
func queryTerms(query string) []string {
	tokens := index.Tokenize(map[string]struct{}{query: {}})

	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for token := range tokens {
		term := index.Normalize(token)
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms
}

type aggregator struct {
	keyField string

	mu      sync.Mutex
	matched map[string]map[string]struct{}
	records map[string]db.Record
	unkeyed int
}

func newAggregator(keyField string) *aggregator {
	return &aggregator{
		keyField: keyField,
		matched:  make(map[string]map[string]struct{}),
		records:  make(map[string]db.Record),
	}
}

func (a *aggregator) add(term string, groups []index.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, group := range groups {
		for _, record := range group {
			key, err := recordKey(record, a.keyField)
			if err != nil {
				a.unkeyed++
				continue
			}
			if a.matched[key] == nil {
				a.matched[key] = make(map[string]struct{})
			}
			a.matched[key][term] = struct{}{}
			a.records[key] = record
		}
	}
}

// rank orders candidates by descending match count, then by ascending key
// length, then by key.
func (a *aggregator) rank() []RankedCandidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	candidates := make([]RankedCandidate, 0, len(a.matched))
	for key, terms := range a.matched {
		candidates = append(candidates, RankedCandidate{
			Record:      a.records[key],
			MatchCount:  len(terms),
			TieBreakKey: key,
		})
	}

	slices.SortFunc(candidates, compareCandidates)
	return candidates
}

func compareCandidates(a, b RankedCandidate) int {
	if c := cmp.Compare(b.MatchCount, a.MatchCount); c != 0 {
		return c
	}
	if c := cmp.Compare(utf8.RuneCountInString(a.TieBreakKey), utf8.RuneCountInString(b.TieBreakKey)); c != 0 {
		return c
	}
	return cmp.Compare(a.TieBreakKey, b.TieBreakKey)
}

func recordKey(record db.Record, keyField string) (string, error) {
	value, ok := record[keyField]
	if !ok || value == nil {
		return "", &db.NotFoundError{Target: keyField}
	}
	return cast.ToStringE(value)
}
