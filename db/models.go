package db

import (
	"maps"
	"slices"
)

const DefaultDeleteField = "__deleted__"

// Record is a schema-less JSON object. It is identified by the value of the
// store's key field.
type Record map[string]any

// Collection maps key field values to records. A record replaces any record
// previously stored under the same key.
type Collection map[string]Record

// Keys returns the collection keys in lexical order.
func (c Collection) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Fields returns the field names of the record in lexical order.
func (r Record) Fields() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a shallow copy of the collection. Records are shared.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	return maps.Clone(c)
}

type Metadata struct {
	KeyField    string `json:"key_field"`
	DeleteField string `json:"delete_field"`
}

// CheckMetadata fills defaults and reports a missing key field.
func CheckMetadata(metadata Metadata) (Metadata, error) {
	if metadata.KeyField == "" {
		return metadata, &ConfigurationError{Field: "key_field", Reason: "key field in metadata not defined"}
	}
	if metadata.DeleteField == "" {
		metadata.DeleteField = DefaultDeleteField
	}
	return metadata, nil
}

// Fields returns the metadata field names, used by the "metadata" system facility.
func (m Metadata) Fields() []string {
	return []string{"delete_field", "key_field"}
}
