package flatIndex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
)

// remoteVersion is one complete snapshot in the mirror folder. Providers such as Drive allow
// several objects with one name; the newest upload of each artifact wins and the rest are superseded.
type remoteVersion struct {
	version     int64
	blobRef     string
	blobAt      time.Time
	metadataRef string
	metadataAt  time.Time
	superseded  []string
}

// newer orders two uploads of the same artifact: creation time first, then ref so the pick is stable.
func newer(at time.Time, ref string, thanAt time.Time, thanRef string) bool {
	if !at.Equal(thanAt) {
		return at.After(thanAt)
	}
	return ref > thanRef
}

func (rv *remoteVersion) add(o objectStore.Object, isBlob bool) {
	ref, at := &rv.metadataRef, &rv.metadataAt
	if isBlob {
		ref, at = &rv.blobRef, &rv.blobAt
	}
	switch {
	case *ref == "":
		*ref, *at = o.Ref, o.CreatedTime
	case newer(o.CreatedTime, o.Ref, *at, *ref):
		rv.superseded = append(rv.superseded, *ref)
		*ref, *at = o.Ref, o.CreatedTime
	default:
		rv.superseded = append(rv.superseded, o.Ref)
	}
}

// snapshotStore reads and writes snapshot artifacts in the local cache and, when configured, the remote mirror.
type snapshotStore struct {
	cacheDir     string
	remote       objectStore.Provider
	remoteFolder string
	keep         int
}

func (s *snapshotStore) localVersions() ([]int64, error) {
	entries, err := os.ReadDir(s.cacheDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	blobs := map[int64]bool{}
	metas := map[int64]bool{}
	for _, e := range entries {
		v, isBlob, ok := parseVersion(e.Name())
		if !ok {
			continue
		}
		if isBlob {
			blobs[v] = true
		} else {
			metas[v] = true
		}
	}
	var versions []int64
	for v := range blobs {
		if metas[v] {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// newestLocal is the local freshness check: a cached copy exists or it does not.
func (s *snapshotStore) newestLocal() (int64, bool, error) {
	versions, err := s.localVersions()
	if err != nil || len(versions) == 0 {
		return 0, false, err
	}
	return versions[len(versions)-1], true, nil
}

func (s *snapshotStore) readLocal(version int64) (*snapshot, error) {
	blob, err := os.ReadFile(filepath.Join(s.cacheDir, blobFile(version)))
	if err != nil {
		return nil, err
	}
	metadata, err := os.ReadFile(filepath.Join(s.cacheDir, metadataFile(version)))
	if err != nil {
		// a blob without its metadata is a half written snapshot
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ragErrors.IndexCorruptError{Err: err}
		}
		return nil, err
	}
	snap, err := decodeSnapshot(blob, metadata)
	if err != nil {
		return nil, err
	}
	snap.version = version
	return snap, nil
}

// writeLocal writes the metadata last so a crash leaves no complete pair for a partial version.
func (s *snapshotStore) writeLocal(version int64, blob []byte, metadata []byte) error {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(s.cacheDir, blobFile(version)), blob); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.cacheDir, metadataFile(version)), metadata)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *snapshotStore) remoteVersions(ctx context.Context) ([]remoteVersion, error) {
	if s.remote == nil {
		return nil, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, config.ObjectStorageTimeout)
	defer cancel()
	objects, err := s.remote.List(callCtx, s.remoteFolder)
	if err != nil {
		return nil, fmt.Errorf("listing index mirror: %w", err)
	}

	byVersion := map[int64]*remoteVersion{}
	for _, o := range objects {
		v, isBlob, ok := parseVersion(o.Name)
		if !ok {
			continue
		}
		rv := byVersion[v]
		if rv == nil {
			rv = &remoteVersion{version: v}
			byVersion[v] = rv
		}
		rv.add(o, isBlob)
	}
	var complete []remoteVersion
	for _, rv := range byVersion {
		if rv.blobRef != "" && rv.metadataRef != "" {
			complete = append(complete, *rv)
		}
	}
	sort.Slice(complete, func(i, j int) bool { return complete[i].version < complete[j].version })
	return complete, nil
}

// newest is the version a writer must have loaded before it may publish the next one.
func (s *snapshotStore) newest(ctx context.Context) (int64, error) {
	if s.remote != nil {
		versions, err := s.remoteVersions(ctx)
		if err != nil || len(versions) == 0 {
			return 0, err
		}
		return versions[len(versions)-1].version, nil
	}
	v, _, err := s.newestLocal()
	return v, err
}

// pull copies the newest remote snapshot into the cache. Returns false when the mirror is empty.
func (s *snapshotStore) pull(ctx context.Context) (int64, bool, error) {
	versions, err := s.remoteVersions(ctx)
	if err != nil || len(versions) == 0 {
		return 0, false, err
	}
	latest := versions[len(versions)-1]

	blob, err := s.get(ctx, latest.blobRef)
	if err != nil {
		return 0, false, err
	}
	metadata, err := s.get(ctx, latest.metadataRef)
	if err != nil {
		return 0, false, err
	}
	if err = s.writeLocal(latest.version, blob, metadata); err != nil {
		return 0, false, err
	}
	return latest.version, true, nil
}

func (s *snapshotStore) get(ctx context.Context, ref string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.ObjectStorageTimeout)
	defer cancel()
	data, err := s.remote.Get(callCtx, ref)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", ref, err)
	}
	return data, nil
}

func (s *snapshotStore) push(ctx context.Context, version int64, blob []byte, metadata []byte) error {
	if s.remote == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, config.ObjectStorageTimeout)
	defer cancel()
	blobRef, err := s.remote.Put(callCtx, blob, blobFile(version), s.remoteFolder)
	if err != nil {
		return fmt.Errorf("uploading index blob: %w", err)
	}
	if _, err = s.remote.Put(callCtx, metadata, metadataFile(version), s.remoteFolder); err != nil {
		// the version stays unpublished; a leftover blob would be retried under the same name
		s.discard(ctx, version, blobRef)
		return fmt.Errorf("uploading index metadata: %w", err)
	}
	return nil
}

func (s *snapshotStore) discard(ctx context.Context, version int64, ref string) {
	callCtx, cancel := context.WithTimeout(ctx, config.ObjectStorageTimeout)
	defer cancel()
	if err := s.remote.Delete(callCtx, ref); err != nil {
		logger.Warn("could not delete snapshot object", "version", version, "ref", ref, "error", err)
	}
}

// prune drops superseded duplicate uploads and keeps the newest `keep` versions in both places.
// Failures only cost disk space.
func (s *snapshotStore) prune(ctx context.Context) {
	if s.keep < 1 {
		return
	}
	if versions, err := s.localVersions(); err == nil && len(versions) > s.keep {
		for _, v := range versions[:len(versions)-s.keep] {
			_ = os.Remove(filepath.Join(s.cacheDir, metadataFile(v)))
			_ = os.Remove(filepath.Join(s.cacheDir, blobFile(v)))
		}
	}

	versions, err := s.remoteVersions(ctx)
	if err != nil {
		return
	}
	for i, v := range versions {
		refs := v.superseded
		if i < len(versions)-s.keep {
			refs = append(refs, v.metadataRef, v.blobRef)
		}
		for _, ref := range refs {
			s.discard(ctx, v.version, ref)
		}
	}
}
