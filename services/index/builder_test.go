package index

import (
	"errors"
	"testing"

	"github.com/meghashyamc/recordstore/db"
	"github.com/stretchr/testify/require"
)

func testRecords() db.Collection {
	return db.Collection{
		"1": {"id": "1", "name": "Foo"},
		"2": {"id": "2", "name": "Bar"},
	}
}

func postingsOf(t *testing.T, result *BuildResult) map[string][]db.Record {
	t.Helper()
	postings := make(map[string][]db.Record, result.Len())
	for _, key := range result.Keys() {
		records, ok := result.Get(key)
		require.True(t, ok)
		postings[key] = records
	}
	return postings
}

func TestKeyBuilder(t *testing.T) {
	assert := require.New(t)
	records := testRecords()

	result, err := NewKeyBuilder().Build(records)
	assert.NoError(err)

	assert.Equal(map[string][]db.Record{
		"1": {records["1"]},
		"2": {records["2"]},
	}, postingsOf(t, result))
	assert.Empty(result.Skipped())
}

func TestBuildersTolerateEmptyCollections(t *testing.T) {
	assert := require.New(t)

	builders := DefaultBuilders()
	for _, name := range builders.Names() {
		t.Run(name, func(t *testing.T) {
			builder, err := builders.New(name, BuilderParams{Field: "name", Property: "children"})
			assert.NoError(err)

			result, err := builder.Build(db.Collection{})
			assert.NoError(err)
			assert.Equal(0, result.Len())
		})
	}
}

var derivedKeysTestCases = []struct {
	name        string
	derived     DerivedKeys
	expected    []string
	expectedErr bool
}{
	{
		name:     "String scalar",
		derived:  Scalar("Foo"),
		expected: []string{"Foo"},
	},
	{
		name:     "Number scalar",
		derived:  Scalar(float64(42)),
		expected: []string{"42"},
	},
	{
		name:     "List",
		derived:  List([]any{"a", 1, true}),
		expected: []string{"a", "1", "true"},
	},
	{
		name:     "Set keys are sorted",
		derived:  Set(map[string]any{"b": true, "a": 1}),
		expected: []string{"a", "b"},
	},
	{
		name:        "Null scalar",
		derived:     Scalar(nil),
		expectedErr: true,
	},
	{
		name:        "Object inside a list",
		derived:     List([]any{map[string]any{"x": 1}}),
		expectedErr: true,
	},
	{
		name:        "Zero value",
		derived:     DerivedKeys{},
		expectedErr: true,
	},
}

func TestDerivedKeys(t *testing.T) {
	assert := require.New(t)
	for _, testCase := range derivedKeysTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			keys, err := testCase.derived.Keys()
			if testCase.expectedErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(testCase.expected, keys)
		})
	}
}

func TestFieldBuilderDerivedShapes(t *testing.T) {
	assert := require.New(t)

	records := db.Collection{
		"1": {"id": "1", "tags": []any{"red", "blue"}},
		"2": {"id": "2", "tags": map[string]any{"blue": true, "green": true}},
		"3": {"id": "3", "tags": "red"},
	}

	result, err := NewFieldBuilder(FieldExtractor("tags")).Build(records)
	assert.NoError(err)

	postings := postingsOf(t, result)
	assert.Equal([]db.Record{records["1"], records["3"]}, postings["red"])
	assert.Equal([]db.Record{records["1"], records["2"]}, postings["blue"])
	assert.Equal([]db.Record{records["2"]}, postings["green"])
}

func TestFieldBuilderIsolatesBadRecords(t *testing.T) {
	assert := require.New(t)

	records := db.Collection{
		"1": {"id": "1", "name": "Foo"},
		"2": {"id": "2"},
		"3": {"id": "3", "name": "Baz"},
		"4": {"id": "4", "name": "boom"},
	}
	extract := func(record db.Record) (DerivedKeys, error) {
		if record["name"] == "boom" {
			panic("extractor blew up")
		}
		name, ok := record["name"]
		if !ok {
			return DerivedKeys{}, errors.New("no name")
		}
		return Scalar(name), nil
	}

	result, err := NewFieldBuilder(extract).Build(records)
	assert.NoError(err)

	assert.Equal([]string{"Foo", "Baz"}, result.Keys())
	assert.Equal([]SkippedRecord{
		{Key: "2", Reason: "no name"},
		{Key: "4", Reason: "extractor panicked: extractor blew up"},
	}, result.Skipped())
}

func TestAliasBuilder(t *testing.T) {
	assert := require.New(t)

	value := db.Record{"v": 1, "alias": []any{"x", "y"}}
	result, err := NewAliasBuilder().Build(db.Collection{"a": value})
	assert.NoError(err)

	postings := postingsOf(t, result)
	assert.Len(postings, 3)
	for _, key := range []string{"a", "x", "y"} {
		assert.Equal([]db.Record{value}, postings[key], "key %s should resolve to the aliased value", key)
	}
}

func TestAliasBuilderRejectsMalformedAliases(t *testing.T) {
	assert := require.New(t)

	value := db.Record{"v": 1, "alias": "x"}
	result, err := NewAliasBuilder().Build(db.Collection{"a": value})
	assert.NoError(err)

	assert.Equal([]string{"a"}, result.Keys())
	assert.Len(result.Skipped(), 1)
}

func TestRecursiveBuilderFlattensNestedEntries(t *testing.T) {
	assert := require.New(t)

	leaf := map[string]any{"name": "leaf"}
	shadow := map[string]any{"name": "deep b"}
	child := map[string]any{
		"name":     "child",
		"children": map[string]any{"leaf": leaf, "b": shadow},
	}
	records := db.Collection{
		"a": {"name": "root", "children": map[string]any{"child": child}},
		"b": {"name": "shallow b"},
	}

	result, err := NewRecursiveBuilder("children").Build(records)
	assert.NoError(err)

	postings := postingsOf(t, result)
	assert.ElementsMatch([]string{"a", "b", "child", "leaf"}, result.Keys())
	assert.Equal(db.Record(leaf), postings["leaf"][0])
	assert.Equal(db.Record(child), postings["child"][0])
	assert.Equal(db.Record(shadow), postings["b"][0], "the deeper entry should overwrite the shallower one")
}

func TestRecursiveBuilderStopsOnCycles(t *testing.T) {
	assert := require.New(t)

	node := map[string]any{"name": "loop"}
	children := map[string]any{"node": node}
	node["children"] = children

	result, err := NewRecursiveBuilder("children").Build(db.Collection{"node": node})
	assert.NoError(err)

	assert.Equal([]string{"node"}, result.Keys())
	assert.Len(result.Skipped(), 1)
	assert.Contains(result.Skipped()[0].Reason, "cycle")
}

func TestRecursiveBuilderDepthBound(t *testing.T) {
	assert := require.New(t)

	deepest := map[string]any{"name": "3"}
	level2 := map[string]any{"name": "2", "children": map[string]any{"n3": deepest}}
	level1 := map[string]any{"name": "1", "children": map[string]any{"n2": level2}}

	result, err := NewRecursiveBuilder("children").WithMaxDepth(1).Build(db.Collection{"n1": level1})
	assert.NoError(err)

	assert.ElementsMatch([]string{"n1", "n2"}, result.Keys())
	assert.Len(result.Skipped(), 1)
}

func TestTrigramBuilder(t *testing.T) {
	assert := require.New(t)

	records := db.Collection{
		"1": {"id": "1", "name": "cats"},
		"2": {"id": "2", "name": "at"},
		"3": {"id": "3", "name": "aaaa"},
	}

	result, err := NewTrigramBuilder(FieldExtractor("name")).Build(records)
	assert.NoError(err)

	postings := postingsOf(t, result)
	assert.Equal([]db.Record{records["1"]}, postings["cat"])
	assert.Equal([]db.Record{records["1"]}, postings["ats"])
	assert.Equal([]db.Record{records["2"]}, postings["at"])
	assert.Equal([]db.Record{records["3"]}, postings["aaa"], "a repeated trigram should not repeat the record")
}

func TestWordsBuilder(t *testing.T) {
	assert := require.New(t)

	records := db.Collection{
		"1": {"id": "1", "text": "The Quick brown fox"},
		"2": {"id": "2", "text": "a quick test"},
	}

	builder, err := NewWordsBuilder(FieldExtractor("text"))
	assert.NoError(err)

	result, err := builder.Build(records)
	assert.NoError(err)

	postings := postingsOf(t, result)
	assert.Equal([]db.Record{records["1"], records["2"]}, postings["quick"])
	assert.Equal([]db.Record{records["1"]}, postings["fox"])
	assert.NotContains(postings, "the", "stop words should not be indexed")
	assert.NotContains(postings, "a", "stop words should not be indexed")
}

func TestBuildersRejectUnknownNames(t *testing.T) {
	assert := require.New(t)

	_, err := DefaultBuilders().New("nope", BuilderParams{})
	assert.ErrorIs(err, db.ErrConfiguration)

	_, err = DefaultBuilders().New(BuilderField, BuilderParams{})
	assert.ErrorIs(err, db.ErrConfiguration)
}
