package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/services/index"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `store:
  key_field: id
  log_path: %s
  reindex_on_write: true
database:
  kvdb_path: %s
log:
  level: error
indexes:
  - name: byId
    builder: key
    sort: lexical
  - name: byName
    builder: field
    field: name
    sort: lexical
  - name: nameTrigrams
    builder: trigram
    field: name
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(testConfig, filepath.Join(dir, "records.ndjson"), filepath.Join(dir, "meta.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, configPath string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestPutGetSearch(t *testing.T) {
	assert := require.New(t)
	configPath := writeTestConfig(t)

	_, err := run(t, configPath, "", "put", "1", `{"name":"Cats"}`)
	assert.NoError(err)
	_, err = run(t, configPath, `{"id":"2","name":"Scat"}`, "put", "2")
	assert.NoError(err)

	out, err := run(t, configPath, "", "get", "byName", "CATS")
	assert.NoError(err)
	var groups []index.Group
	assert.NoError(json.Unmarshal([]byte(out), &groups))
	assert.Len(groups, 1)
	assert.Equal("1", groups[0][0]["id"])

	out, err = run(t, configPath, "", "search", "nameTrigrams", "cats")
	assert.NoError(err)
	var records []map[string]any
	assert.NoError(json.Unmarshal([]byte(out), &records))
	assert.Len(records, 2)
	assert.Equal("1", records[0]["id"])

	out, err = run(t, configPath, "", "list", "byId", "--sort", "desc", "--output", "yaml")
	assert.NoError(err)
	var keys []string
	assert.NoError(yaml.Unmarshal([]byte(out), &keys))
	assert.Equal([]string{"2", "1"}, keys)
}

func TestDeleteAndReport(t *testing.T) {
	assert := require.New(t)
	configPath := writeTestConfig(t)

	_, err := run(t, configPath, "", "put", "1", `{"name":"Foo"}`)
	assert.NoError(err)
	_, err = run(t, configPath, "", "delete", "1")
	assert.NoError(err)

	_, err = run(t, configPath, "", "get", "byId", "1")
	assert.Error(err)

	out, err := run(t, configPath, "", "rebuild")
	assert.NoError(err)
	var rebuilt index.BuildReport
	assert.NoError(json.Unmarshal([]byte(out), &rebuilt))
	assert.Equal(0, rebuilt.Records)

	out, err = run(t, configPath, "", "report")
	assert.NoError(err)
	var latest index.BuildReport
	assert.NoError(json.Unmarshal([]byte(out), &latest))
	assert.NotEmpty(latest.ID)
	assert.Len(latest.Indexes, 3)
}

var invalidCommandTestCases = []struct {
	name    string
	args    []string
	err     error
	errText string
}{
	{name: "Blank search query", args: []string{"search", "nameTrigrams", " "}, err: db.ErrInvalidArgument},
	{name: "Unknown output format", args: []string{"list", "indexes", "--output", "xml"}, errText: "unknown output format"},
	{name: "Unknown sort direction", args: []string{"list", "byId", "--sort", "up"}, err: db.ErrInvalidArgument},
	{name: "Record is not an object", args: []string{"put", "1", "[1,2]"}, err: db.ErrInvalidArgument},
	{name: "Unknown list target", args: []string{"list", "nowhere"}, err: db.ErrNotFound},
	{name: "Missing key", args: []string{"get", "byId", "missing"}, err: db.ErrNotFound},
}

func TestInvalidCommands(t *testing.T) {
	configPath := writeTestConfig(t)

	for _, testCase := range invalidCommandTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			_, err := run(t, configPath, "", testCase.args...)
			if testCase.err != nil {
				assert.ErrorIs(err, testCase.err)
			} else {
				assert.ErrorContains(err, testCase.errText)
			}
			assert.NotContains(err.Error(), "timeout")
		})
	}
}

func TestFailedCommandReleasesStore(t *testing.T) {
	assert := require.New(t)
	configPath := writeTestConfig(t)

	_, err := run(t, configPath, "", "get", "byId", "missing")
	assert.ErrorIs(err, db.ErrNotFound)

	_, err = run(t, configPath, "", "put", "1", `{"name":"Foo"}`)
	assert.NoError(err)

	out, err := run(t, configPath, "", "list", "byId")
	assert.NoError(err)
	var keys []string
	assert.NoError(json.Unmarshal([]byte(out), &keys))
	assert.Equal([]string{"1"}, keys)
}
