package index

import (
	"fmt"

	"github.com/meghashyamc/recordstore/db"
	"github.com/spf13/cast"
)

const aliasField = "alias"

// AliasBuilder is a synonym table: each record is reachable through its own
// key and through every entry of its "alias" field.
type AliasBuilder struct{}

func NewAliasBuilder() *AliasBuilder {
	return &AliasBuilder{}
}

func (b *AliasBuilder) Name() string {
	return BuilderAlias
}

func (b *AliasBuilder) Build(records db.Collection) (*BuildResult, error) {
	result := NewBuildResult()
	for _, key := range records.Keys() {
		record := records[key]
		result.Set(key, record)

		aliases, err := aliasesOf(record)
		if err != nil {
			result.Skip(key, err.Error())
			continue
		}
		for _, alias := range aliases {
			result.Set(alias, record)
		}
	}
	return result, nil
}

func aliasesOf(record db.Record) ([]string, error) {
	value, ok := record[aliasField]
	if !ok || value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		aliases := make([]string, 0, len(v))
		for _, entry := range v {
			alias, err := cast.ToStringE(entry)
			if err != nil || entry == nil {
				return aliases, fmt.Errorf("alias %v is not a string", entry)
			}
			aliases = append(aliases, alias)
		}
		return aliases, nil
	default:
		return nil, fmt.Errorf("alias field holds %T, not a list", value)
	}
}
