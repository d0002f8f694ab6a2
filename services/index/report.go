package index

import "time"

type SkippedRecord struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

type IndexReport struct {
	Name    string          `json:"name"`
	Builder string          `json:"builder"`
	RawKeys int             `json:"raw_keys"`
	Terms   int             `json:"terms"`
	Skipped []SkippedRecord `json:"skipped,omitempty"`
}

// BuildReport describes one successful rebuild.
type BuildReport struct {
	ID         string        `json:"id"`
	Generation uint64        `json:"generation"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Records    int           `json:"records"`
	Indexes    []IndexReport `json:"indexes"`
}

func (r *BuildReport) Index(name string) (IndexReport, bool) {
	for _, report := range r.Indexes {
		if report.Name == name {
			return report, true
		}
	}
	return IndexReport{}, false
}

// SkippedCount is the number of records skipped across all indexes.
func (r *BuildReport) SkippedCount() int {
	count := 0
	for _, report := range r.Indexes {
		count += len(report.Skipped)
	}
	return count
}
