package index

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/meghashyamc/recordstore/db"
)

const (
	SortLexical = "lexical"
	SortNumeric = "numeric"
	SortLength  = "length"
)

// Comparator orders index terms for ListKeys.
type Comparator func(a, b string) int

func ComparatorNamed(name string) (Comparator, error) {
	switch name {
	case "":
		return nil, nil
	case SortLexical:
		return strings.Compare, nil
	case SortNumeric:
		return compareNumeric, nil
	case SortLength:
		return compareLength, nil
	default:
		return nil, &db.ConfigurationError{Field: "sort", Reason: fmt.Sprintf("unknown comparator %q", name)}
	}
}

// compareNumeric orders numeric terms by value, ahead of non-numeric terms.
func compareNumeric(a, b string) int {
	af, aErr := strconv.ParseFloat(a, 64)
	bf, bErr := strconv.ParseFloat(b, 64)
	switch {
	case aErr == nil && bErr == nil:
		if c := cmp.Compare(af, bf); c != 0 {
			return c
		}
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func compareLength(a, b string) int {
	if c := cmp.Compare(utf8.RuneCountInString(a), utf8.RuneCountInString(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
