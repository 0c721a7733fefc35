package ingest

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// GuessedMetadata is what bulk uploads know about a thesis before a librarian edits it.
type GuessedMetadata struct {
	Title    string
	Authors  string
	Abstract string
	Year     int
}

var (
	yearPattern     = regexp.MustCompile(`(19|20)\d{2}`)
	byLinePattern   = regexp.MustCompile(`(?i)^\s*(by|authors?|researchers?|proponents?)\s*[:\-]?\s+(.+)$`)
	abstractHeading = regexp.MustCompile(`(?i)^\s*abstract\s*[:\-]?\s*(.*)$`)
	sectionHeading  = regexp.MustCompile(`(?i)^\s*(chapter\s+[0-9ivx]+|introduction|acknowledg(e)?ments?|table\s+of\s+contents|keywords?\s*:)`)
)

// GuessMetadata reads the first pages of a thesis: title is the first line with more than four words,
// authors follow a "by" line, the abstract is the text under an "Abstract" heading, year comes from the file name.
func GuessMetadata(e Extracted, fileName string) GuessedMetadata {
	out := GuessedMetadata{}

	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if y := yearPattern.FindString(base); y != "" {
		out.Year, _ = strconv.Atoi(y)
	}

	var lines []string
	for _, p := range e.Pages {
		for _, l := range strings.Split(p.Content, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) > 200 {
			break
		}
	}

	for i, l := range lines {
		if out.Title == "" && len(strings.Fields(l)) > 4 && hasLetters(l) && !abstractHeading.MatchString(l) {
			out.Title = l
			continue
		}
		if out.Authors == "" {
			if m := byLinePattern.FindStringSubmatch(l); m != nil {
				out.Authors = strings.TrimSpace(m[2])
				continue
			}
		}
		if out.Abstract == "" {
			if m := abstractHeading.FindStringSubmatch(l); m != nil {
				out.Abstract = collectAbstract(m[1], lines[i+1:])
			}
		}
	}

	if out.Title == "" {
		out.Title = strings.ReplaceAll(base, "_", " ")
	}
	if out.Authors == "" {
		out.Authors = "Unknown"
	}
	return out
}

func collectAbstract(first string, rest []string) string {
	parts := []string{}
	if first != "" {
		parts = append(parts, first)
	}
	words := len(strings.Fields(first))
	for _, l := range rest {
		if sectionHeading.MatchString(l) || words > 400 {
			break
		}
		parts = append(parts, l)
		words += len(strings.Fields(l))
	}
	return strings.Join(parts, " ")
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
