package ingest

import (
	"strings"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
)

// Chunk splits text on whitespace into windows of windowSize tokens, each starting windowSize-overlap
// tokens after the previous one. The last window may be shorter. Same input, same output.
func Chunk(text string, windowSize int, overlap int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || windowSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	step := windowSize - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+windowSize, len(tokens))
		if chunk := strings.Join(tokens[start:end], " "); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// PreparePassages maps chunks to records with ids "<documentId>_<ordinal>".
func PreparePassages(doc commonModels.DocumentEntity, chunks []string) []commonModels.PassageRecord {
	records := make([]commonModels.PassageRecord, 0, len(chunks))
	for i, text := range chunks {
		records = append(records, commonModels.PassageRecord{
			Id:         commonModels.PassageId(doc.Id, i),
			DocumentId: doc.Id,
			Title:      doc.Title,
			Program:    doc.Program,
			Year:       doc.Year,
			Text:       text,
			SourceTag:  commonModels.SourceVectorIndex,
		})
	}
	return records
}
