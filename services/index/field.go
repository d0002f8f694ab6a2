package index

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/meghashyamc/recordstore/db"
	"github.com/spf13/cast"
)

type derivedKind int

const (
	derivedNone derivedKind = iota
	derivedScalar
	derivedList
	derivedSet
)

// DerivedKeys is what an extractor produces for one record: a single scalar,
// a list of scalars, or a set given as the keys of a map.
type DerivedKeys struct {
	kind   derivedKind
	scalar any
	list   []any
	set    map[string]any
}

func Scalar(value any) DerivedKeys {
	return DerivedKeys{kind: derivedScalar, scalar: value}
}

func List(values []any) DerivedKeys {
	return DerivedKeys{kind: derivedList, list: values}
}

func Set(values map[string]any) DerivedKeys {
	return DerivedKeys{kind: derivedSet, set: values}
}

var errNoDerivedKeys = errors.New("extractor produced no keys")

// Keys stringifies the derived keys. Set keys come back in lexical order.
func (d DerivedKeys) Keys() ([]string, error) {
	switch d.kind {
	case derivedScalar:
		key, err := scalarKey(d.scalar)
		if err != nil {
			return nil, err
		}
		return []string{key}, nil
	case derivedList:
		keys := make([]string, 0, len(d.list))
		for _, value := range d.list {
			key, err := scalarKey(value)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		return keys, nil
	case derivedSet:
		return slices.Sorted(maps.Keys(d.set)), nil
	case derivedNone:
		return nil, errNoDerivedKeys
	default:
		return nil, fmt.Errorf("unknown derived key kind %d", d.kind)
	}
}

func scalarKey(value any) (string, error) {
	if value == nil {
		return "", errors.New("derived key is null")
	}
	switch value.(type) {
	case map[string]any, db.Record, []any:
		return "", fmt.Errorf("derived key %v is not a scalar", value)
	}
	key, err := cast.ToStringE(value)
	if err != nil {
		return "", fmt.Errorf("derived key is not a scalar: %w", err)
	}
	return key, nil
}

// Extractor derives index keys from a record. An error excludes the record
// from the index being built.
type Extractor func(record db.Record) (DerivedKeys, error)

// FieldExtractor reads a single field: objects become sets, arrays become
// lists, and everything else is a scalar. A missing field is an error.
func FieldExtractor(field string) Extractor {
	return func(record db.Record) (DerivedKeys, error) {
		value, ok := record[field]
		if !ok {
			return DerivedKeys{}, fmt.Errorf("field %s is missing", field)
		}
		switch v := value.(type) {
		case map[string]any:
			return Set(v), nil
		case db.Record:
			return Set(v), nil
		case []any:
			return List(v), nil
		case []string:
			values := make([]any, len(v))
			for i, s := range v {
				values[i] = s
			}
			return List(values), nil
		default:
			return Scalar(v), nil
		}
	}
}

// deriveKeys runs extract against a single record, turning a panic into an
// error so that one bad record never aborts the build.
func deriveKeys(extract Extractor, record db.Record) (keys []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()

	derived, err := extract(record)
	if err != nil {
		return nil, err
	}
	return derived.Keys()
}

// FieldBuilder indexes each record under every key its extractor derives.
type FieldBuilder struct {
	extract Extractor
}

func NewFieldBuilder(extract Extractor) *FieldBuilder {
	return &FieldBuilder{extract: extract}
}

func (b *FieldBuilder) Name() string {
	return BuilderField
}

func (b *FieldBuilder) Build(records db.Collection) (*BuildResult, error) {
	if b.extract == nil {
		return nil, errors.New("field builder has no extractor")
	}

	result := NewBuildResult()
	for _, key := range records.Keys() {
		derived, err := deriveKeys(b.extract, records[key])
		if err != nil {
			result.Skip(key, err.Error())
			continue
		}
		for _, derivedKey := range derived {
			result.Add(derivedKey, records[key])
		}
	}
	return result, nil
}
