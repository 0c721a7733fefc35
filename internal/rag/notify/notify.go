package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
)

const (
	SchemaVersion          = "1"
	EventIngestionComplete = "ingestion.completed"
)

// Event is what dashboards receive once a document finishes ingestion.
type Event struct {
	SchemaVersion string    `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventId       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	DocumentId    string    `json:"document_id"`
	Title         string    `json:"title"`
	PassagesAdded int       `json:"passages_added"`
	Message       string    `json:"message"`
}

func NewIngestionComplete(documentId string, title string, added int) Event {
	return Event{
		SchemaVersion: SchemaVersion,
		EventType:     EventIngestionComplete,
		EventId:       utils.GetNewUUID(),
		EmittedAt:     time.Now().UTC(),
		DocumentId:    documentId,
		Title:         title,
		PassagesAdded: added,
		Message:       fmt.Sprintf("Thesis uploaded & processed: %s", title),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
