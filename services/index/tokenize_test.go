package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var normalizeTestCases = []struct {
	name     string
	input    string
	expected string
}{
	{
		name:     "Mixed case",
		input:    "Hello World",
		expected: "hello world",
	},
	{
		name:     "Whitespace runs",
		input:    "Hello  \t\n World",
		expected: "hello world",
	},
	{
		name:     "Leading and trailing whitespace is collapsed, not trimmed",
		input:    "  Foo ",
		expected: " foo ",
	},
	{
		name:     "Unicode",
		input:    "ÉCOLE  Été",
		expected: "école été",
	},
	{
		name:     "Empty",
		input:    "",
		expected: "",
	},
}

func TestNormalize(t *testing.T) {
	assert := require.New(t)
	for _, testCase := range normalizeTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			normalized := Normalize(testCase.input)
			assert.Equal(testCase.expected, normalized)
			assert.Equal(normalized, Normalize(normalized), "normalize should be idempotent")
		})
	}
}

func TestNormalizeIgnoresCaseAndWhitespaceRuns(t *testing.T) {
	assert := require.New(t)
	assert.Equal(Normalize("hello world"), Normalize("Hello  World"))
}

var trigramsTestCases = []struct {
	name     string
	input    string
	expected []string
}{
	{
		name:     "Exactly three characters",
		input:    "cat",
		expected: []string{"cat"},
	},
	{
		name:     "Four characters",
		input:    "cats",
		expected: []string{"cat", "ats"},
	},
	{
		name:     "Shorter than three characters is kept whole",
		input:    "ab",
		expected: []string{"ab"},
	},
	{
		name:     "Spaces are part of the window",
		input:    "a cat",
		expected: []string{"a c", " ca", "cat"},
	},
	{
		name:     "Multi-byte runes",
		input:    "héllo",
		expected: []string{"hél", "éll", "llo"},
	},
	{
		name:     "Empty",
		input:    "",
		expected: nil,
	},
}

func TestTrigrams(t *testing.T) {
	assert := require.New(t)
	for _, testCase := range trigramsTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(testCase.expected, Trigrams(testCase.input))
		})
	}
}

func TestTokenizeAccumulatesPayloads(t *testing.T) {
	assert := require.New(t)

	tokens := Tokenize(map[string]int{
		"cats": 1,
		"bat":  2,
		"at":   3,
	})

	assert.Equal([]int{1}, tokens["cat"])
	assert.Equal([]int{1}, tokens["ats"])
	assert.Equal([]int{2}, tokens["bat"])
	assert.Equal([]int{3}, tokens["at"])
	assert.Len(tokens, 4)
}

func TestTokenizeEmptyInput(t *testing.T) {
	assert := require.New(t)
	assert.Empty(Tokenize(map[string]string{}))
}
