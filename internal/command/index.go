package command

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// index is an append-only inverted index over command labels. Entries are
// only ever added; removal never happens during normal operation.
type index struct {
	mu sync.RWMutex

	// tokens maps a lowercased label token to the ids of commands whose
	// label contains it, in insertion order.
	tokens map[string][]string

	// labels maps a command id to its label for scoring.
	labels map[string]string

	// order records insertion order for stable tie-breaking.
	order map[string]int
	next  int
}

func newIndex() *index {
	return &index{
		tokens: make(map[string][]string),
		labels: make(map[string]string),
		order:  make(map[string]int),
	}
}

// add indexes one command's label.
func (ix *index) add(id, label string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.labels[id]; ok {
		return
	}
	ix.labels[id] = label
	ix.order[id] = ix.next
	ix.next++
	for _, tok := range tokenize(label) {
		ix.tokens[tok] = append(ix.tokens[tok], id)
	}
}

// scored pairs a command id with its relevance score.
type scored struct {
	id    string
	score int
}

// search returns command ids ranked by relevance. Every query term must
// match at least one label token, with prefix expansion: a partial word
// matches its completions. Ranking weights full-label subsequence quality
// so label matches dominate.
func (ix *index) search(query string) []string {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	candidates := ix.expand(terms[0])
	for _, term := range terms[1:] {
		next := ix.expand(term)
		for id := range candidates {
			if !next[id] {
				delete(candidates, id)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	results := make([]scored, 0, len(candidates))
	for id := range candidates {
		results = append(results, scored{id: id, score: ix.score(query, terms, id)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return ix.order[results[i].id] < ix.order[results[j].id]
	})

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}

// expand returns the ids whose label contains a token the term is a
// prefix of. Callers hold the read lock.
func (ix *index) expand(term string) map[string]bool {
	ids := make(map[string]bool)
	for tok, list := range ix.tokens {
		if !strings.HasPrefix(tok, term) {
			continue
		}
		for _, id := range list {
			ids[id] = true
		}
	}
	return ids
}

// score rates a candidate: full-label subsequence quality where the whole
// query matches in order, a per-term token score otherwise. Callers hold
// the read lock.
func (ix *index) score(query string, terms []string, id string) int {
	label := ix.labels[id]

	compact := strings.Join(terms, " ")
	if matches := matchLabel(compact, label); matches != nil {
		return scoreMatch(compact, label, matches)
	}

	// Terms matched tokens out of label order; rank below any in-order
	// subsequence match.
	score := 0
	for _, term := range terms {
		score += len(term)
	}
	return score
}

// tokenize splits a label into lowercased alphanumeric tokens.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
