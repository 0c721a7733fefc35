package gcsStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Store keeps objects in one bucket; refs are object keys "<folder>/<name>".
type Store struct {
	client *storage.Client
	bucket string
	logger *logger_i.Logger
}

func New(ctx context.Context, bucket string, credentialsFile string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket, logger: logger_i.NewLogger("gcs_object_store")}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Put(ctx context.Context, data []byte, name string, folder string) (string, error) {
	key := path.Join(strings.Trim(folder, "/"), name)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", remote("put", err)
	}
	if err := w.Close(); err != nil {
		return "", remote("put", err)
	}
	s.logger.Debug("uploaded object", "key", key, "bytes", len(data))
	return key, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(ref).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("object %s: %w", ref, ragErrors.ErrNotFound)
	}
	if err != nil {
		return nil, remote("get", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, remote("get", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	err := s.client.Bucket(s.bucket).Object(ref).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return remote("delete", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, folder string) ([]objectStore.Object, error) {
	prefix := strings.Trim(folder, "/")
	if prefix != "" {
		prefix += "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []objectStore.Object{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, remote("list", err)
		}
		out = append(out, objectStore.Object{
			Name:        strings.TrimPrefix(attrs.Name, prefix),
			Ref:         attrs.Name,
			CreatedTime: attrs.Created,
		})
	}
	return out, nil
}

func remote(op string, err error) error {
	return &ragErrors.RemoteUnavailableError{Op: "gcs " + op, Err: err}
}
