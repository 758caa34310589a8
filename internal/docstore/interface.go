package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// Document is one JSON document of a collection.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Client is the remote document-store boundary. Collections are addressed
// by slash separated paths such as "leagues/<id>/players".
type Client interface {
	// List returns the documents of a collection in insertion order.
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create stores a new document and fails with ErrExists when the id is
	// taken.
	Create(ctx context.Context, collection, id string, data any) error
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, collection, id string, data any) error
	// Add stores data under a generated id and returns it.
	Add(ctx context.Context, collection string, data any) (string, error)
	// Update merges fields into the top level of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	DeleteCollection(ctx context.Context, collection string) error
}
