package session

import (
	"encoding/json"
	"fmt"

	"github.com/fieldpath/planner/internal/model"
)

// Document is the JSON interchange form of a session: the path and the
// marker registry. History and selection are editing state and are not
// persisted.
type Document struct {
	Path    model.Path     `json:"path"`
	Markers []model.Marker `json:"markers,omitempty"`
}

// ToDocument captures the persistable state of the session.
func (s *Session) ToDocument() Document {
	return Document{
		Path:    s.Path.Clone(),
		Markers: cloneMarkers(s.Markers),
	}
}

// MarshalJSON serializes the session as its Document form.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToDocument())
}

// FromJSON rebuilds a session from a Document produced by MarshalJSON.
func FromJSON(data []byte) (*Session, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshalling session document: %w", err)
	}
	return Restore(doc.Path, doc.Markers), nil
}
