package kvdb

// Buckets created when the database opens.
const (
	ReportsBucket = "reports"
)

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	Keys(bucket string) ([]string, error)
	Close() error
}
