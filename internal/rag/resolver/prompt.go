package resolver

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
)

// buildContextPrompt lists passages in rank order until the character budget is spent. Passages that do not
// fit are dropped whole; only a first passage larger than the whole budget is cut.
func buildContextPrompt(query string, passages []commonModels.PassageRecord, budget int) (string, []commonModels.PassageRecord) {
	var b strings.Builder
	b.WriteString("Use these thesis excerpts to answer.\n\n")

	used := make([]commonModels.PassageRecord, 0, len(passages))
	spent := 0
	for i, p := range passages {
		entry := fmt.Sprintf("[%d] %s\n%s\n\n", i+1, passageLabel(p), p.Text)
		if spent+len(entry) > budget {
			if len(used) > 0 {
				break
			}
			entry = cutToBudget(entry, budget)
		}
		b.WriteString(entry)
		spent += len(entry)
		used = append(used, p)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String(), used
}

const entrySeparator = "\n\n"

// cutToBudget trims entry to at most budget bytes, backing off to a rune boundary, and keeps the
// separator so the question never runs into the passage text.
func cutToBudget(entry string, budget int) string {
	keep := budget - len(entrySeparator)
	if keep <= 0 {
		return entrySeparator
	}
	body := strings.TrimSuffix(entry, entrySeparator)
	if keep >= len(body) {
		return entry
	}
	for keep > 0 && !utf8.RuneStart(body[keep]) {
		keep--
	}
	return body[:keep] + entrySeparator
}

func passageLabel(p commonModels.PassageRecord) string {
	switch {
	case p.SourceTag == commonModels.SourceUploaded:
		return "Uploaded document"
	case p.Year > 0:
		return fmt.Sprintf("%s (%d)", p.Title, p.Year)
	default:
		return p.Title
	}
}

func genericPrompt(query string) string {
	return fmt.Sprintf(config.GenericPrompt, query)
}

// dedupeCitations keeps the first occurrence of every (title, year) pair.
func dedupeCitations(passages []commonModels.PassageRecord) []commonModels.Citation {
	seen := make(map[commonModels.Citation]struct{})
	var out []commonModels.Citation
	for _, p := range passages {
		if p.SourceTag == commonModels.SourceUploaded || p.Title == "" {
			continue
		}
		c := commonModels.Citation{Title: p.Title, Year: p.Year}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func withSources(answer string, citations []commonModels.Citation) string {
	if len(citations) == 0 {
		return answer
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(answer, "\n "))
	b.WriteString("\n\nSources:")
	for _, c := range citations {
		if c.Year > 0 {
			fmt.Fprintf(&b, "\n- %s (%d)", c.Title, c.Year)
		} else {
			fmt.Fprintf(&b, "\n- %s", c.Title)
		}
	}
	return b.String()
}

func exactReply(doc commonModels.DocumentEntity) string {
	reply := fmt.Sprintf("The author of %q is **%s**. Found in %s (%d).", doc.Title, doc.Authors, doc.Program, doc.Year)
	if link := catalog.FileLink(doc); link != "" {
		reply += "\nFile: " + link
	}
	return reply
}

func fuzzyReply(query string, docs []commonModels.DocumentEntity) string {
	var b strings.Builder
	noun := "theses"
	if len(docs) == 1 {
		noun = "thesis"
	}
	fmt.Fprintf(&b, "I found %d %s matching %q:", len(docs), noun, query)
	for i, d := range docs {
		fmt.Fprintf(&b, "\n%d. **%s** by %s, %s (%d)", i+1, d.Title, d.Authors, d.Program, d.Year)
		if link := catalog.FileLink(d); link != "" {
			fmt.Fprintf(&b, " %s", link)
		}
	}
	return b.String()
}

func citationsOf(docs []commonModels.DocumentEntity) []commonModels.Citation {
	passages := make([]commonModels.PassageRecord, 0, len(docs))
	for _, d := range docs {
		passages = append(passages, commonModels.PassageRecord{Title: d.Title, Year: d.Year})
	}
	return dedupeCitations(passages)
}
