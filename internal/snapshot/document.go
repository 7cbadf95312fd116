package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ncecere/fedramp_marketplace/internal/models"
)

// Document is the serialized form of a snapshot used by the blob store and
// the redis cache.
type Document struct {
	ID          uuid.UUID         `json:"id"`
	Origin      string            `json:"origin,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Providers   []models.Provider `json:"providers"`
	Products    []models.Product  `json:"products"`
	Agencies    []models.Agency   `json:"agencies"`
}

// Document returns the serializable form of s.
func (s *Snapshot) Document() Document {
	return Document{
		ID:          s.ID,
		Origin:      s.Origin,
		GeneratedAt: s.LoadedAt,
		Providers:   s.Providers(),
		Products:    s.Products(),
		Agencies:    s.Agencies(),
	}
}

// FromDocument rebuilds a snapshot, keeping the document id when present.
func FromDocument(doc Document) *Snapshot {
	snap := New(doc.Origin, doc.Providers, doc.Products, doc.Agencies)
	if doc.ID != uuid.Nil {
		snap.ID = doc.ID
	}
	if !doc.GeneratedAt.IsZero() {
		snap.LoadedAt = doc.GeneratedAt
	}
	return snap
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot document: %w", err)
	}
	return nil
}

// Decode reads a JSON document from r.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode snapshot document: %w", err)
	}
	return doc, nil
}
