// Package retrieval implements the read path: candidate fusion over the
// vector, lexical, and graph channels, model-backed ranking, and the final
// graph-aware rerank.
package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// BM25 parameters, the standard Robertson defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var tokenPattern = regexp.MustCompile(`\w+`)

// Tokenize lower-cases text and splits it into word tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

type lexicalDoc struct {
	ownerID string
	length  int
	freqs   map[string]int
}

// LexicalMatch is one BM25 search hit.
type LexicalMatch struct {
	ID    int64
	Score float64
}

// BM25Index is an in-memory inverted index over memory summaries and raw
// text. It is rebuilt from the store on startup and kept current by the
// client's write path; all methods are safe for concurrent use.
type BM25Index struct {
	mu          sync.RWMutex
	docs        map[int64]*lexicalDoc
	postings    map[string]map[int64]struct{}
	totalLength int
}

// NewBM25Index creates an empty index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		docs:     make(map[int64]*lexicalDoc),
		postings: make(map[string]map[int64]struct{}),
	}
}

// Add indexes a document, replacing any previous content for the id.
func (idx *BM25Index) Add(id int64, ownerID, text string) {
	tokens := Tokenize(text)
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(id)
	idx.docs[id] = &lexicalDoc{ownerID: ownerID, length: len(tokens), freqs: freqs}
	idx.totalLength += len(tokens)
	for t := range freqs {
		posting := idx.postings[t]
		if posting == nil {
			posting = make(map[int64]struct{})
			idx.postings[t] = posting
		}
		posting[id] = struct{}{}
	}
}

// Remove drops a document from the index. Removing an unknown id is a no-op.
func (idx *BM25Index) Remove(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
}

func (idx *BM25Index) removeLocked(id int64) {
	doc, ok := idx.docs[id]
	if !ok {
		return
	}
	delete(idx.docs, id)
	idx.totalLength -= doc.length
	for t := range doc.freqs {
		posting := idx.postings[t]
		delete(posting, id)
		if len(posting) == 0 {
			delete(idx.postings, t)
		}
	}
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Search returns up to k documents owned by ownerID scored by BM25 against
// the query, best first. Ties break on ascending id so results are
// deterministic.
func (idx *BM25Index) Search(query, ownerID string, k int) []LexicalMatch {
	terms := Tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docs)
	if n == 0 {
		return nil
	}
	avgLen := float64(idx.totalLength) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	scores := make(map[int64]float64)
	for _, term := range terms {
		posting := idx.postings[term]
		if len(posting) == 0 {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(len(posting))+0.5)/(float64(len(posting))+0.5))
		for id := range posting {
			doc := idx.docs[id]
			if doc.ownerID != ownerID {
				continue
			}
			tf := float64(doc.freqs[term])
			norm := bm25K1 * (1 - bm25B + bm25B*float64(doc.length)/avgLen)
			scores[id] += idf * tf * (bm25K1 + 1) / (tf + norm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	matches := make([]LexicalMatch, 0, len(scores))
	for id, score := range scores {
		matches = append(matches, LexicalMatch{ID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
