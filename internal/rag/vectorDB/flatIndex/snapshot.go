package flatIndex

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
)

var (
	blobName     = regexp.MustCompile(`^thesis_index\.v(\d+)\.bin$`)
	metadataName = regexp.MustCompile(`^metadata\.v(\d+)\.json$`)
)

func blobFile(version int64) string     { return fmt.Sprintf("thesis_index.v%d.bin", version) }
func metadataFile(version int64) string { return fmt.Sprintf("metadata.v%d.json", version) }

// parseVersion reports which artifact a file name is and for which version.
func parseVersion(name string) (version int64, isBlob bool, ok bool) {
	if m := blobName.FindStringSubmatch(name); m != nil {
		v, err := strconv.ParseInt(m[1], 10, 64)
		return v, true, err == nil
	}
	if m := metadataName.FindStringSubmatch(name); m != nil {
		v, err := strconv.ParseInt(m[1], 10, 64)
		return v, false, err == nil
	}
	return 0, false, false
}

// storedRecord is one metadata entry. Deleted entries keep their slot so positions stay aligned with the blob.
type storedRecord struct {
	commonModels.PassageRecord
	Deleted bool `json:"deleted,omitempty"`
}

type snapshot struct {
	version int64
	dim     int
	records []storedRecord
	vectors [][]float32
	live    map[string]struct{}
}

func emptySnapshot() *snapshot {
	return &snapshot{live: make(map[string]struct{})}
}

// decodeSnapshot needs both artifacts and refuses them unless they have the same cardinality.
func decodeSnapshot(blob []byte, metadata []byte) (*snapshot, error) {
	version, dim, vectors, err := decodeVectors(blob)
	if err != nil {
		return nil, err
	}
	var records []storedRecord
	if err = json.Unmarshal(metadata, &records); err != nil {
		return nil, &ragErrors.IndexCorruptError{Err: fmt.Errorf("reading metadata: %w", err)}
	}
	if len(vectors) != len(records) {
		return nil, &ragErrors.IndexCorruptError{Vectors: len(vectors), Records: len(records)}
	}

	s := &snapshot{version: version, dim: dim, records: records, vectors: vectors, live: make(map[string]struct{}, len(records))}
	for _, r := range records {
		if !r.Deleted {
			s.live[r.Id] = struct{}{}
		}
	}
	return s, nil
}

func (s *snapshot) encode() (blob []byte, metadata []byte, err error) {
	if len(s.vectors) != len(s.records) {
		return nil, nil, &ragErrors.IndexCorruptError{Vectors: len(s.vectors), Records: len(s.records)}
	}
	blob, err = encodeVectors(s.version, s.dim, s.vectors)
	if err != nil {
		return nil, nil, err
	}
	records := s.records
	if records == nil {
		records = []storedRecord{}
	}
	metadata, err = json.Marshal(records)
	return blob, metadata, err
}

// clone copies the slices headers so appends and tombstones never touch the published snapshot.
func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		version: s.version,
		dim:     s.dim,
		records: append([]storedRecord(nil), s.records...),
		vectors: append([][]float32(nil), s.vectors...),
		live:    make(map[string]struct{}, len(s.live)),
	}
	for id := range s.live {
		c.live[id] = struct{}{}
	}
	return c
}

// appendNew skips ids already live, including repeats inside the batch.
func (s *snapshot) appendNew(records []commonModels.PassageRecord, vectors [][]float32) (int, error) {
	if len(records) != len(vectors) {
		return 0, fmt.Errorf("%d records but %d vectors", len(records), len(vectors))
	}
	added := 0
	for i, r := range records {
		if _, exists := s.live[r.Id]; exists {
			continue
		}
		v := vectors[i]
		if len(v) == 0 {
			return added, fmt.Errorf("record %s has no vector", r.Id)
		}
		if s.dim == 0 {
			s.dim = len(v)
		}
		if len(v) != s.dim {
			return added, fmt.Errorf("record %s has dimension %d, index has %d", r.Id, len(v), s.dim)
		}
		r.SourceTag = commonModels.SourceVectorIndex
		s.records = append(s.records, storedRecord{PassageRecord: r})
		s.vectors = append(s.vectors, v)
		s.live[r.Id] = struct{}{}
		added++
	}
	return added, nil
}

func (s *snapshot) tombstone(documentId string) int {
	removed := 0
	for i := range s.records {
		r := &s.records[i]
		if r.Deleted || r.DocumentId != documentId {
			continue
		}
		r.Deleted = true
		delete(s.live, r.Id)
		removed++
	}
	return removed
}

// compact drops tombstoned entries together with their vectors.
func (s *snapshot) compact() int {
	records := make([]storedRecord, 0, len(s.live))
	vectors := make([][]float32, 0, len(s.live))
	for i, r := range s.records {
		if r.Deleted {
			continue
		}
		records = append(records, r)
		vectors = append(vectors, s.vectors[i])
	}
	dropped := len(s.records) - len(records)
	s.records, s.vectors = records, vectors
	return dropped
}

type scored struct {
	index    int
	distance float64
}

// search ranks live entries by squared L2 distance; the stable sort keeps insertion order on ties.
func (s *snapshot) search(query []float32, k int) ([]commonModels.PassageRecord, error) {
	if k <= 0 || len(s.records) == 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d", len(query), s.dim)
	}

	candidates := make([]scored, 0, len(s.live))
	for i, r := range s.records {
		if r.Deleted {
			continue
		}
		candidates = append(candidates, scored{index: i, distance: squaredL2(query, s.vectors[i])})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].distance < candidates[b].distance
	})

	k = min(k, len(candidates))
	out := make([]commonModels.PassageRecord, 0, k)
	for _, c := range candidates[:k] {
		out = append(out, s.records[c.index].PassageRecord)
	}
	return out, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
