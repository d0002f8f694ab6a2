// Package store hosts a record collection on top of the record log and keeps
// its secondary indexes current.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/meghashyamc/recordstore/config"
	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/db/kvdb"
	"github.com/meghashyamc/recordstore/db/recordlog"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/meghashyamc/recordstore/metrics"
	"github.com/meghashyamc/recordstore/services/index"
	"github.com/meghashyamc/recordstore/services/query"
	"github.com/meghashyamc/recordstore/services/search"
	"github.com/meghashyamc/recordstore/validation"
	"github.com/spf13/cast"
)

const (
	latestReportKey = "latest"

	DefaultReportRetention = 32
)

type Options struct {
	Metadata       db.Metadata
	LogPath        string
	KVDBPath       string
	ReindexOnWrite bool
	Indexes        []config.IndexDefinition
	Search         search.Config
	// ReportRetention is the number of build reports kept; zero picks the
	// default.
	ReportRetention int
	// Builders overrides the builder table. Nil means index.DefaultBuilders.
	Builders index.Builders
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	definitions, err := cfg.GetIndexes()
	if err != nil {
		return Options{}, err
	}

	return Options{
		Metadata: db.Metadata{
			KeyField:    cfg.GetKeyField(),
			DeleteField: cfg.GetDeleteField(),
		},
		LogPath:         cfg.GetLogPath(),
		KVDBPath:        cfg.GetKVDBPath(),
		ReindexOnWrite:  cfg.GetReindexOnWrite(),
		Indexes:         definitions,
		ReportRetention: cfg.GetReportRetention(),
		Search: search.Config{
			CacheSize:   cfg.GetSearchCacheSize(),
			Concurrency: cfg.GetSearchConcurrency(),
		},
	}, nil
}

type Store struct {
	logger          logger.Logger
	metadata        db.Metadata
	reindexOnWrite  bool
	reportRetention int

	log      *recordlog.Log
	kv       kvdb.DB
	registry *index.Registry
	specs    []index.IndexSpec
	query    *query.Service
	search   *search.Service
	metrics  *metrics.Metrics

	// records is replaced, never mutated, once published.
	mu      sync.RWMutex
	records db.Collection

	// rebuildMu orders rebuilds so a later snapshot is always published last.
	rebuildMu sync.Mutex
}

// Open wires a store from options. The collection starts empty; call
// LoadFromFile to replay the record log.
func Open(logger logger.Logger, m *metrics.Metrics, options Options) (*Store, error) {
	metadata, err := db.CheckMetadata(options.Metadata)
	if err != nil {
		logger.Error("invalid store metadata", "err", err.Error())
		return nil, err
	}

	builders := options.Builders
	if builders == nil {
		builders = index.DefaultBuilders()
	}
	specs, err := buildSpecs(logger, builders, options.Indexes)
	if err != nil {
		return nil, err
	}

	log, err := recordlog.New(logger, options.LogPath, metadata)
	if err != nil {
		return nil, err
	}

	kv, err := kvdb.New(logger, options.KVDBPath)
	if err != nil {
		return nil, err
	}

	retention := options.ReportRetention
	if retention <= 0 {
		retention = DefaultReportRetention
	}

	store := &Store{
		logger:          logger,
		metadata:        metadata,
		reindexOnWrite:  options.ReindexOnWrite,
		reportRetention: retention,
		log:             log,
		kv:              kv,
		registry:        index.NewRegistry(logger),
		specs:           specs,
		metrics:         m,
		records:         db.Collection{},
	}
	store.query = query.New(logger, store.registry, store)

	store.search, err = search.New(logger, store.registry, m, options.Search)
	if err != nil {
		kv.Close()
		return nil, err
	}

	return store, nil
}

func buildSpecs(logger logger.Logger, builders index.Builders, definitions []config.IndexDefinition) ([]index.IndexSpec, error) {
	validator, err := validation.New(logger, builders)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateAll(validator, definitions); err != nil {
		return nil, &db.ConfigurationError{Field: "indexes", Reason: err.Error()}
	}

	specs := make([]index.IndexSpec, 0, len(definitions))
	for _, definition := range definitions {
		builder, err := builders.New(definition.Builder, index.BuilderParams{
			Field:    definition.Field,
			Property: definition.Property,
		})
		if err != nil {
			logger.Error("failed to create index builder", "index", definition.Name, "builder", definition.Builder, "err", err.Error())
			return nil, fmt.Errorf("index %s: %w", definition.Name, err)
		}
		comparator, err := index.ComparatorNamed(definition.Sort)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", definition.Name, err)
		}
		specs = append(specs, index.IndexSpec{Name: definition.Name, Builder: builder, Sort: comparator})
	}

	return specs, nil
}

// LoadFromFile replays the record log and rebuilds every index from it.
func (s *Store) LoadFromFile() (*index.BuildReport, error) {
	records, err := s.log.Load()
	if err != nil {
		return nil, err
	}
	return s.LoadData(records)
}

// LoadData replaces the in-memory collection and rebuilds. The log is not
// written.
func (s *Store) LoadData(records db.Collection) (*index.BuildReport, error) {
	s.mu.Lock()
	s.records = records.Clone()
	s.mu.Unlock()

	return s.Reindex()
}

// Reindex rebuilds every configured index from the current collection.
func (s *Store) Reindex() (*index.BuildReport, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	records := s.Records()

	start := time.Now()
	report, err := s.registry.Rebuild(records, s.specs)
	if err != nil {
		s.metrics.ObserveRebuild(metrics.OutcomeFailure, time.Since(start))
		return nil, err
	}
	s.metrics.ObserveRebuild(metrics.OutcomeSuccess, time.Since(start))
	for _, indexReport := range report.Indexes {
		s.metrics.AddSkipped(indexReport.Name, len(indexReport.Skipped))
	}

	if err := s.saveReport(report); err != nil {
		return report, err
	}

	return report, nil
}

// Save writes record under key to the log and the collection. A nil record
// deletes key. The key field is filled in when the record lacks it. The
// store keeps its own copy of record.
func (s *Store) Save(key string, record db.Record, reindex bool) error {
	if key == "" {
		return &db.InvalidArgumentError{Argument: "key", Reason: "key cannot be empty"}
	}

	if record != nil {
		record = maps.Clone(record)
		if value, ok := record[s.metadata.KeyField]; ok && value != nil {
			recordKey, err := cast.ToStringE(value)
			if err != nil || recordKey != key {
				return &db.InvalidArgumentError{
					Argument: "record",
					Reason:   fmt.Sprintf("%s field %v does not match key %s", s.metadata.KeyField, value, key),
				}
			}
		} else {
			record[s.metadata.KeyField] = key
		}
	}

	s.mu.Lock()
	if err := s.log.Append(key, record); err != nil {
		s.mu.Unlock()
		return err
	}
	next := s.records.Clone()
	if record == nil {
		delete(next, key)
	} else {
		next[key] = record
	}
	s.records = next
	s.mu.Unlock()

	s.logger.Debug("saved record", "key", key, "deleted", record == nil)

	if reindex {
		if _, err := s.Reindex(); err != nil {
			return fmt.Errorf("record %s saved but reindex failed: %w", key, err)
		}
	}
	return nil
}

// ReindexOnWrite is the configured default for Save's reindex argument.
func (s *Store) ReindexOnWrite() bool {
	return s.reindexOnWrite
}

func (s *Store) Delete(key string, reindex bool) error {
	s.mu.RLock()
	_, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return &db.NotFoundError{Target: key}
	}

	return s.Save(key, nil, reindex)
}

// Record returns the record stored under key.
func (s *Store) Record(key string) (db.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	return record, ok
}

// Records returns the current collection. Callers must not modify it.
func (s *Store) Records() db.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

func (s *Store) Metadata() db.Metadata {
	return s.metadata
}

func (s *Store) Get(indexName string, rawKey string) ([]index.Group, bool) {
	return s.query.Get(indexName, rawKey)
}

func (s *Store) ListKeys(target string, options query.Options) (*query.Listing, error) {
	return s.query.ListKeys(target, options)
}

// Search runs a fuzzy search ranked by the store's key field.
func (s *Store) Search(indexName string, queryString string, limit int) ([]db.Record, error) {
	return s.search.Search(indexName, queryString, s.metadata.KeyField, limit)
}

func (s *Store) SearchRanked(indexName string, queryString string, limit int) ([]search.RankedCandidate, error) {
	return s.search.SearchRanked(indexName, queryString, s.metadata.KeyField, limit)
}

// LastReport returns the most recent persisted build report.
func (s *Store) LastReport() (*index.BuildReport, error) {
	return s.Report(latestReportKey)
}

// Report returns a persisted build report by ID.
func (s *Store) Report(id string) (*index.BuildReport, error) {
	value, err := s.kv.Get(kvdb.ReportsBucket, id)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return nil, &db.NotFoundError{Target: "build report " + id}
		}
		return nil, err
	}

	var report index.BuildReport
	if err := json.Unmarshal([]byte(value), &report); err != nil {
		s.logger.Error("failed to decode build report", "id", id, "err", err.Error())
		return nil, fmt.Errorf("failed to decode build report %s: %w", id, err)
	}
	return &report, nil
}

// ReportIDs lists the IDs of every persisted build report, oldest first.
func (s *Store) ReportIDs() ([]string, error) {
	keys, err := s.kv.Keys(kvdb.ReportsBucket)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != latestReportKey {
			ids = append(ids, key)
		}
	}
	return ids, nil
}

func (s *Store) saveReport(report *index.BuildReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.Error("failed to encode build report", "id", report.ID, "err", err.Error())
		return fmt.Errorf("failed to encode build report: %w", err)
	}

	for _, key := range []string{report.ID, latestReportKey} {
		if err := s.kv.Set(kvdb.ReportsBucket, key, string(data)); err != nil {
			return fmt.Errorf("failed to persist build report: %w", err)
		}
	}

	return s.pruneReports()
}

// pruneReports deletes the oldest reports beyond the retention limit. Report
// IDs are time-ordered, so byte order is age order.
func (s *Store) pruneReports() error {
	ids, err := s.ReportIDs()
	if err != nil {
		return err
	}
	if len(ids) <= s.reportRetention {
		return nil
	}

	for _, id := range ids[:len(ids)-s.reportRetention] {
		if err := s.kv.Delete(kvdb.ReportsBucket, id); err != nil {
			return fmt.Errorf("failed to prune build report %s: %w", id, err)
		}
		s.logger.Debug("pruned build report", "id", id)
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}
