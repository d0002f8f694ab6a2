package index

import "github.com/meghashyamc/recordstore/db"

// KeyBuilder indexes every record under its own key.
type KeyBuilder struct{}

func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{}
}

func (b *KeyBuilder) Name() string {
	return BuilderKey
}

func (b *KeyBuilder) Build(records db.Collection) (*BuildResult, error) {
	result := NewBuildResult()
	for _, key := range records.Keys() {
		result.Add(key, records[key])
	}
	return result, nil
}
