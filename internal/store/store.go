// Package store is the single write path to the reports document database.
//
// Every report job persists through a Container and the helpers in this
// package (DeleteWhere, ReplaceAll, BatchWrite, UpsertByNaturalKey) instead of
// talking to the Cosmos DB SDK directly.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned by Create when an item with the same id already
	// exists in the partition.
	ErrConflict = errors.New("document already exists")

	// ErrNotFound is returned by Replace when the target item does not exist.
	ErrNotFound = errors.New("document not found")
)

// Document is anything that can be stored in a partitioned container.
type Document interface {
	// DocumentID returns the database id of the document.
	DocumentID() string

	// PartitionKey returns the value of the container's partition key field.
	PartitionKey() string
}

// Parameter is a named query parameter, e.g. {"@environment", "prod"}.
type Parameter struct {
	Name  string
	Value any
}

// Query is a parameterised SQL query against a container.
type Query struct {
	SQL        string
	Parameters []Parameter

	// PartitionKey scopes the query to one partition. Empty means a
	// cross-partition query.
	PartitionKey string
}

// SelectAll is the cross-partition query returning every item.
var SelectAll = Query{SQL: "SELECT * FROM c"}

// WhereEquals builds a query matching items whose fields equal the given
// values, e.g. WhereEquals("environment", "prod").
// Pairs must be field/value alternations.
func WhereEquals(pairs ...string) Query {
	if len(pairs)%2 != 0 {
		panic("store.WhereEquals: odd number of arguments")
	}
	q := Query{SQL: "SELECT * FROM c"}
	for i := 0; i < len(pairs); i += 2 {
		field, value := pairs[i], pairs[i+1]
		if i == 0 {
			q.SQL += " WHERE "
		} else {
			q.SQL += " AND "
		}
		param := "@" + field
		q.SQL += fmt.Sprintf("c.%s = %s", field, param)
		q.Parameters = append(q.Parameters, Parameter{Name: param, Value: value})
	}
	return q
}

// Container is the subset of document database operations used by the
// report jobs. CosmosContainer is the production implementation;
// MemoryContainer backs tests and dry runs.
type Container interface {
	// Name returns the container name, for logging.
	Name() string

	// Query returns the raw JSON of every item matched by q.
	Query(ctx context.Context, q Query) ([]json.RawMessage, error)

	// Create inserts doc, failing with ErrConflict when the id is taken.
	Create(ctx context.Context, doc Document) error

	// Upsert inserts doc or overwrites the item with the same id.
	Upsert(ctx context.Context, doc Document) error

	// Replace overwrites the existing item id with the body of doc. The
	// stored item keeps id regardless of doc.DocumentID().
	Replace(ctx context.Context, id string, doc Document) error

	// Delete removes an item. Deleting a missing item is not an error.
	Delete(ctx context.Context, partitionKey, id string) error
}

// FieldDocument is a schemaless JSON object whose partition key is read
// from a named field. Used for documents supplied on stdin.
type FieldDocument struct {
	Fields         map[string]any
	PartitionField string
}

// DocumentID implements Document.
func (d FieldDocument) DocumentID() string {
	id, _ := d.Fields["id"].(string)
	return id
}

// PartitionKey implements Document.
func (d FieldDocument) PartitionKey() string {
	return stringField(d.Fields, d.PartitionField)
}

// MarshalJSON encodes the underlying fields.
func (d FieldDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Fields)
}

// stringField renders a top-level JSON field as a string partition value.
func stringField(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// marshalWithID encodes doc and forces its "id" field to id.
func marshalWithID(doc Document, id string) ([]byte, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document %q: %w", doc.DocumentID(), err)
	}
	if id == doc.DocumentID() {
		return body, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("rewrite id of document %q: %w", doc.DocumentID(), err)
	}
	fields["id"] = id
	return json.Marshal(fields)
}

// itemKey extracts the id and partition value of a raw item.
func itemKey(raw json.RawMessage, partitionField string) (id, partitionKey string, err error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", "", fmt.Errorf("decode item: %w", err)
	}
	id, _ = fields["id"].(string)
	if id == "" {
		return "", "", errors.New("decode item: missing id")
	}
	return id, stringField(fields, partitionField), nil
}
