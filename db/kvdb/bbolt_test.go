package kvdb

import (
	"path/filepath"
	"testing"

	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *BoltDB {
	t.Helper()
	assert := require.New(t)

	boltDB, err := New(logger.Discard(), filepath.Join(t.TempDir(), "kv", "meta.db"))
	assert.NoError(err)
	t.Cleanup(func() { boltDB.Close() })

	return boltDB
}

func TestSetGetDelete(t *testing.T) {
	assert := require.New(t)
	boltDB := setupTestDB(t)

	assert.NoError(boltDB.Set(ReportsBucket, "b", "2"))
	assert.NoError(boltDB.Set(ReportsBucket, "a", "1"))

	value, err := boltDB.Get(ReportsBucket, "a")
	assert.NoError(err)
	assert.Equal("1", value)

	keys, err := boltDB.Keys(ReportsBucket)
	assert.NoError(err)
	assert.Equal([]string{"a", "b"}, keys)

	assert.NoError(boltDB.Delete(ReportsBucket, "a"))
	_, err = boltDB.Get(ReportsBucket, "a")
	assert.ErrorIs(err, ErrNotFound)
	assert.ErrorIs(err, db.ErrNotFound)
}

var invalidAccessTestCases = []struct {
	name   string
	bucket string
	key    string
	err    error
}{
	{name: "Empty key", bucket: ReportsBucket, key: "", err: ErrInvalidKey},
	{name: "Unknown bucket", bucket: "missing", key: "a", err: db.ErrNotFound},
	{name: "Missing key", bucket: ReportsBucket, key: "a", err: ErrNotFound},
}

func TestGetInvalidAccess(t *testing.T) {
	assert := require.New(t)
	boltDB := setupTestDB(t)

	for _, testCase := range invalidAccessTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := boltDB.Get(testCase.bucket, testCase.key)
			assert.ErrorIs(err, testCase.err)
		})
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	assert := require.New(t)

	_, err := New(logger.Discard(), "")
	assert.ErrorIs(err, ErrInvalidKey)
}

func TestReopenKeepsValues(t *testing.T) {
	assert := require.New(t)
	path := filepath.Join(t.TempDir(), "meta.db")

	boltDB, err := New(logger.Discard(), path)
	assert.NoError(err)
	assert.NoError(boltDB.Set(ReportsBucket, "latest", "{}"))
	assert.NoError(boltDB.Close())

	boltDB, err = New(logger.Discard(), path)
	assert.NoError(err)
	defer boltDB.Close()

	value, err := boltDB.Get(ReportsBucket, "latest")
	assert.NoError(err)
	assert.Equal("{}", value)
}
