package localStore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

// Store keeps objects under a root directory, refs are paths relative to it.
type Store struct {
	root   string
	logger *logger_i.Logger
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root, logger: logger_i.NewLogger("local_object_store")}, nil
}

func (s *Store) Put(ctx context.Context, data []byte, name string, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := filepath.ToSlash(filepath.Join(cleanSegment(folder), cleanSegment(name)))
	path := s.resolve(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	// write then rename so readers never observe half a file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit object: %w", err)
	}
	s.logger.Debug("stored object", "ref", ref, "bytes", len(data))
	return ref, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.resolve(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("object %s: %w", ref, ragErrors.ErrNotFound)
	}
	return data, err
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.resolve(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) List(ctx context.Context, folder string) ([]objectStore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := s.resolve(cleanSegment(folder))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []objectStore.Object{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]objectStore.Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, objectStore.Object{
			Name:        e.Name(),
			Ref:         filepath.ToSlash(filepath.Join(cleanSegment(folder), e.Name())),
			CreatedTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) resolve(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func cleanSegment(p string) string {
	p = filepath.ToSlash(filepath.Clean("/" + p))
	return strings.TrimPrefix(p, "/")
}
