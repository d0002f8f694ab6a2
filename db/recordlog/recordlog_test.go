package recordlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/stretchr/testify/require"
)

var testMetadata = db.Metadata{KeyField: "id"}

func newTestLog(t *testing.T, content string) *Log {
	t.Helper()
	assert := require.New(t)

	path := filepath.Join(t.TempDir(), "data", "records.ndjson")
	log, err := New(logger.Discard(), path, testMetadata)
	assert.NoError(err)

	if content != "" {
		assert.NoError(os.WriteFile(path, []byte(content), 0644))
	}
	return log
}

func TestLoadAppliesReplacementsAndTombstones(t *testing.T) {
	assert := require.New(t)

	log := newTestLog(t, `{"id":"1","name":"Foo"}
{"id":"2","name":"Bar"}

{"id":"1","name":"Foo v2"}
{"__deleted__":"2"}
{"id":3,"name":"Numeric key"}
{"name":"no key"}
`)

	records, err := log.Load()
	assert.NoError(err)
	assert.Equal(db.Collection{
		"1": {"id": "1", "name": "Foo v2"},
		"3": {"id": float64(3), "name": "Numeric key"},
	}, records)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	assert := require.New(t)

	records, err := newTestLog(t, "").Load()
	assert.NoError(err)
	assert.Empty(records)
}

func TestLoadRejectsMalformedLines(t *testing.T) {
	assert := require.New(t)

	_, err := newTestLog(t, "{\"id\":\"1\"}\nnot json\n").Load()
	assert.ErrorContains(err, "line 2")
}

func TestAppendRoundTrip(t *testing.T) {
	assert := require.New(t)
	log := newTestLog(t, "")

	assert.NoError(log.Append("1", db.Record{"id": "1", "name": "Foo"}))
	assert.NoError(log.Append("2", db.Record{"id": "2", "name": "Bar"}))
	assert.NoError(log.Append("1", nil))

	records, err := log.Load()
	assert.NoError(err)
	assert.Equal(db.Collection{"2": {"id": "2", "name": "Bar"}}, records)

	_, err = os.Stat(log.Path())
	assert.NoError(err)
}

func TestAppendRejectsEmptyKeys(t *testing.T) {
	assert := require.New(t)

	err := newTestLog(t, "").Append("", db.Record{"id": ""})
	assert.ErrorIs(err, db.ErrInvalidArgument)
}

func TestNewRequiresKeyField(t *testing.T) {
	assert := require.New(t)

	_, err := New(logger.Discard(), filepath.Join(t.TempDir(), "records.ndjson"), db.Metadata{})
	assert.ErrorIs(err, db.ErrConfiguration)
}
