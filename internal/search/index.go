// Package search implements the weighted fuzzy index over item text fields
// and the substring fallback used when fuzzy matching finds nothing.
//
// The index is a disposable snapshot: it is rebuilt wholesale whenever the
// indexed items change and is never persisted.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultThreshold is the minimum document score a fuzzy hit needs.
const DefaultThreshold = 0.3

// MinFuzzyRunes is the shortest trimmed keyword that goes through fuzzy
// matching; shorter keywords use substring matching only.
const MinFuzzyRunes = 2

// Field names a searchable text field and its weight.
type Field struct {
	Name   string
	Weight float64
}

// Indexed fields. Extracted text carries the highest weight.
const (
	FieldFilename      = "filename"
	FieldExtractedText = "extractedText"
	FieldDescription   = "description"
)

// DefaultFields returns the standard field weights.
func DefaultFields() []Field {
	return []Field{
		{Name: FieldFilename, Weight: 0.3},
		{Name: FieldExtractedText, Weight: 0.4},
		{Name: FieldDescription, Weight: 0.3},
	}
}

// Document is the indexed projection of one item.
type Document struct {
	ID            string
	Filename      string
	ExtractedText string
	Description   string
}

func (d Document) field(name string) string {
	switch name {
	case FieldFilename:
		return d.Filename
	case FieldExtractedText:
		return d.ExtractedText
	case FieldDescription:
		return d.Description
	default:
		return ""
	}
}

// Hit is one fuzzy match.
type Hit struct {
	ID    string
	Score float64
}

// Option configures Build.
type Option func(*Index)

// WithThreshold sets the minimum score for a hit.
func WithThreshold(th float64) Option {
	return func(ix *Index) { ix.threshold = th }
}

// WithFields replaces the weighted field set.
func WithFields(fields []Field) Option {
	return func(ix *Index) { ix.fields = fields }
}

type entry struct {
	id     string
	fields []string // lower-cased, aligned with Index.fields
}

// Index is an immutable fuzzy index over a set of documents.
type Index struct {
	fields    []Field
	maxWeight float64
	threshold float64
	entries   []entry
}

// Build indexes docs. Document order is kept and breaks score ties.
func Build(docs []Document, opts ...Option) *Index {
	ix := &Index{
		fields:    DefaultFields(),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(ix)
	}
	for _, f := range ix.fields {
		if f.Weight > ix.maxWeight {
			ix.maxWeight = f.Weight
		}
	}

	ix.entries = make([]entry, len(docs))
	for i, d := range docs {
		e := entry{id: d.ID, fields: make([]string, len(ix.fields))}
		for j, f := range ix.fields {
			e.fields[j] = strings.ToLower(d.field(f.Name))
		}
		ix.entries[i] = e
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search returns the documents whose score for keyword reaches the
// threshold, best first. An empty keyword matches nothing.
func (ix *Index) Search(keyword string) []Hit {
	q := strings.ToLower(strings.TrimSpace(keyword))
	if q == "" || ix.maxWeight == 0 {
		return nil
	}

	var hits []Hit
	for _, e := range ix.entries {
		best := 0.0
		for j, f := range ix.fields {
			s := fieldScore(q, e.fields[j]) * f.Weight / ix.maxWeight
			if s > best {
				best = s
			}
		}
		if best > 0 && best >= ix.threshold {
			hits = append(hits, Hit{ID: e.id, Score: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

// fieldScore is 1 for an exact match and decays with the edit distance
// between the query and the field; 0 when the query characters do not
// appear in order in the field. Long fields therefore score poorly even
// when they contain the query verbatim.
func fieldScore(q, text string) float64 {
	if text == "" {
		return 0
	}
	dist := fuzzy.RankMatch(q, text)
	if dist < 0 {
		return 0
	}
	n := utf8.RuneCountInString(text)
	if qn := utf8.RuneCountInString(q); qn > n {
		n = qn
	}
	return 1 - float64(dist)/float64(n)
}

// ContainsFold reports whether any of the document's fields contains
// keyword, ignoring case.
func ContainsFold(d Document, keyword string) bool {
	q := strings.ToLower(strings.TrimSpace(keyword))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Filename), q) ||
		strings.Contains(strings.ToLower(d.ExtractedText), q) ||
		strings.Contains(strings.ToLower(d.Description), q)
}

// UseFuzzy reports whether keyword is long enough for fuzzy matching.
func UseFuzzy(keyword string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(keyword)) >= MinFuzzyRunes
}
