package flatIndex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"golang.org/x/sync/singleflight"
)

var logger = logger_i.NewLogger("flat_index")

// Index is an exhaustive L2 index kept in memory and persisted as versioned snapshots.
// Readers see an immutable snapshot; writers build the next one and swap it in after it is flushed.
type Index struct {
	store   *snapshotStore
	retries int

	mu      sync.RWMutex
	current *snapshot

	// writeMu serializes load-merge-flush inside the process; the version check covers other processes
	writeMu sync.Mutex
	loads   singleflight.Group
}

var _ vectorDB.Index = (*Index)(nil)

// New caches snapshots in cacheDir. remote may be nil, then the cache is the only copy.
func New(cacheDir string, remote objectStore.Provider, remoteFolder string) *Index {
	return &Index{
		store: &snapshotStore{
			cacheDir:     cacheDir,
			remote:       remote,
			remoteFolder: remoteFolder,
			keep:         config.IndexKeepVersions,
		},
		retries: config.IndexFlushRetries,
	}
}

func (x *Index) snapshot() *snapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.current
}

func (x *Index) swap(s *snapshot) {
	x.mu.Lock()
	x.current = s
	x.mu.Unlock()
}

func (x *Index) Ensure(ctx context.Context) error {
	if x.snapshot() != nil {
		return nil
	}
	_, err, _ := x.loads.Do("ensure", func() (interface{}, error) {
		if x.snapshot() != nil {
			return nil, nil
		}
		snap, err := x.load(ctx)
		if err != nil {
			return nil, err
		}
		x.swap(snap)
		logger.Info("index snapshot loaded", "version", snap.version, "entries", len(snap.records))
		return nil, nil
	})
	return err
}

// load prefers the local cache, then the remote mirror, then an empty index.
func (x *Index) load(ctx context.Context) (*snapshot, error) {
	version, ok, err := x.store.newestLocal()
	if err != nil {
		return nil, err
	}
	if !ok {
		version, ok, err = x.store.pull(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Info("no snapshot found, starting an empty index")
			return emptySnapshot(), nil
		}
	}
	return x.store.readLocal(version)
}

// reload fetches whatever another writer published so the next attempt merges on top of it.
func (x *Index) reload(ctx context.Context) error {
	version, ok, err := x.store.pull(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if version, ok, err = x.store.newestLocal(); err != nil {
			return err
		}
	}
	snap := emptySnapshot()
	if ok {
		if snap, err = x.store.readLocal(version); err != nil {
			return err
		}
	}
	x.swap(snap)
	return nil
}

func (x *Index) Merge(ctx context.Context, records []commonModels.PassageRecord, vectors [][]float32) (int, error) {
	return x.mutate(ctx, "merge", func(s *snapshot) (int, error) {
		return s.appendNew(records, vectors)
	})
}

func (x *Index) RemoveDocument(ctx context.Context, documentId string) (int, error) {
	return x.mutate(ctx, "remove", func(s *snapshot) (int, error) {
		return s.tombstone(documentId), nil
	})
}

func (x *Index) Compact(ctx context.Context) error {
	_, err := x.mutate(ctx, "compact", func(s *snapshot) (int, error) {
		return s.compact(), nil
	})
	return err
}

// Reset publishes an empty snapshot on top of whatever exists, corrupt or not.
func (x *Index) Reset(ctx context.Context) error {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	newest, err := x.store.newest(ctx)
	if err != nil {
		return err
	}
	next := emptySnapshot()
	if err = x.flush(ctx, newest, next); err != nil {
		return err
	}
	x.swap(next)
	logger.Info("index reset", "version", next.version)
	return nil
}

// mutate runs fn on a copy of the current snapshot and publishes it. A stale snapshot is reloaded
// and fn is applied again, a bounded number of times.
func (x *Index) mutate(ctx context.Context, op string, fn func(*snapshot) (int, error)) (int, error) {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	if err := x.Ensure(ctx); err != nil {
		return 0, err
	}
	for attempt := 0; ; attempt++ {
		base := x.snapshot()
		next := base.clone()
		changed, err := fn(next)
		if err != nil {
			return 0, err
		}
		if changed == 0 {
			return 0, nil
		}

		err = x.flush(ctx, base.version, next)
		if err == nil {
			x.swap(next)
			logger.Debug("index updated", "op", op, "version", next.version, "changed", changed)
			return changed, nil
		}
		if !errors.Is(err, ragErrors.ErrStaleSnapshot) || attempt >= x.retries {
			return 0, err
		}
		logger.Warn("snapshot moved underneath us, reloading", "op", op, "attempt", attempt+1)
		if err = x.reload(ctx); err != nil {
			return 0, err
		}
	}
}

// flush writes next as loaded+1, but only while loaded is still the newest published version.
func (x *Index) flush(ctx context.Context, loaded int64, next *snapshot) error {
	newest, err := x.store.newest(ctx)
	if err != nil {
		return err
	}
	if newest != loaded {
		return fmt.Errorf("loaded v%d but v%d is published: %w", loaded, newest, ragErrors.ErrStaleSnapshot)
	}

	next.version = loaded + 1
	blob, metadata, err := next.encode()
	if err != nil {
		return err
	}
	if err = x.store.push(ctx, next.version, blob, metadata); err != nil {
		return err
	}
	if err = x.store.writeLocal(next.version, blob, metadata); err != nil {
		return err
	}
	x.store.prune(ctx)
	return nil
}

func (x *Index) Search(ctx context.Context, query []float32, k int) ([]commonModels.PassageRecord, error) {
	if err := x.Ensure(ctx); err != nil {
		return nil, err
	}
	return x.snapshot().search(query, k)
}

func (x *Index) Stats(ctx context.Context) (vectorDB.IndexStats, error) {
	if err := x.Ensure(ctx); err != nil {
		return vectorDB.IndexStats{}, err
	}
	s := x.snapshot()
	return vectorDB.IndexStats{
		Version:   s.version,
		Dimension: s.dim,
		Vectors:   len(s.vectors),
		Live:      len(s.live),
		Orphaned:  len(s.records) - len(s.live),
	}, nil
}
