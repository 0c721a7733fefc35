package objectStore

import (
	"context"
	"time"
)

// Object is one entry of a folder listing. Ref is the opaque location handed back by Put.
type Object struct {
	Name        string    `json:"name"`
	Ref         string    `json:"ref"`
	CreatedTime time.Time `json:"created_time"`
}

// Provider is durable byte storage for original documents and index snapshots.
type Provider interface {
	Put(ctx context.Context, data []byte, name string, folder string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	List(ctx context.Context, folder string) ([]Object, error)
}
