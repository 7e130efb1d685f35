// Package retrieval maintains a small on-disk store of curated
// instruction/plan example pairs and retrieves the most relevant ones
// for few-shot prompting. Retrieval prefers embedding similarity and
// falls back to keyword overlap when no vectors are available.
package retrieval

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sheetwise/sheetwise/internal/utils"
)

// Example is one stored instruction with its known-good plan JSON.
type Example struct {
	ID          string    `json:"id"`
	Instruction string    `json:"instruction"`
	Plan        string    `json:"plan"`
	Hash        string    `json:"hash,omitempty"`
	Vector      []float32 `json:"vector,omitempty"`
}

type Store struct {
	Examples []Example `json:"examples"`
	Meta     StoreMeta `json:"meta"`

	path string
}

type StoreMeta struct {
	StoreVersion  int       `json:"store_version"`
	EmbedProvider string    `json:"embed_provider"`
	EmbedModel    string    `json:"embed_model"`
	EmbedDim      int       `json:"embed_dim"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// StorePath returns the store file under the given examples directory.
func StorePath(dir string) string {
	return filepath.Join(dir, "examples.json")
}

// Open loads the store at dir, returning an empty store when the file
// does not exist yet.
func Open(dir string) (*Store, error) {
	path := StorePath(dir)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{path: path, Meta: StoreMeta{StoreVersion: 1, CreatedAt: time.Now()}}, nil
	}
	if err != nil {
		return nil, err
	}
	var s Store
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode example store: %w", err)
	}
	if s.Meta.StoreVersion == 0 {
		s.Meta.StoreVersion = 1
	}
	s.path = path
	return &s, nil
}

func (s *Store) Save() error {
	if s == nil {
		return fmt.Errorf("nil store")
	}
	if err := utils.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("mkdir examples dir: %w", err)
	}
	s.Meta.UpdatedAt = time.Now()
	b, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(s.path, b)
}

// Add appends an example, deduplicating on instruction hash.
func (s *Store) Add(instruction, planJSON string) Example {
	h := contentHash(instruction)
	for _, ex := range s.Examples {
		if ex.Hash == h {
			return ex
		}
	}
	ex := Example{
		ID:          fmt.Sprintf("ex_%s", h[:12]),
		Instruction: instruction,
		Plan:        planJSON,
		Hash:        h,
	}
	s.Examples = append(s.Examples, ex)
	return ex
}

// Embed computes vectors for examples that lack one. Existing vectors
// are reused when the embedding model is unchanged.
func (s *Store) Embed(ctx context.Context, emb Embedder, provider, model string) error {
	if emb == nil {
		return fmt.Errorf("nil embedder")
	}
	if s.Meta.EmbedProvider != provider || s.Meta.EmbedModel != model {
		// Model changed, all vectors are stale.
		for i := range s.Examples {
			s.Examples[i].Vector = nil
		}
		s.Meta.EmbedProvider = provider
		s.Meta.EmbedModel = model
		s.Meta.EmbedDim = 0
	}
	var texts []string
	var targets []int
	for i, ex := range s.Examples {
		if len(ex.Vector) == 0 {
			texts = append(texts, ex.Instruction)
			targets = append(targets, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return err
	}
	for i, idx := range targets {
		if i >= len(vecs) {
			break
		}
		s.Examples[idx].Vector = vecs[i]
	}
	if len(vecs) > 0 && len(vecs[0]) > 0 {
		s.Meta.EmbedDim = len(vecs[0])
	}
	return nil
}

// Search returns up to topK examples most similar to the query vector,
// above minScore, sorted by descending score.
func (s *Store) Search(query []float32, topK int, minScore float64) []Example {
	type scored struct {
		ex    Example
		score float64
	}
	matches := make([]scored, 0, len(s.Examples))
	for _, ex := range s.Examples {
		sc := CosineSim(query, ex.Vector)
		if sc >= minScore && sc > 0 {
			matches = append(matches, scored{ex: ex, score: sc})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	out := make([]Example, len(matches))
	for i, m := range matches {
		out[i] = m.ex
	}
	return out
}

// SearchKeywords ranks examples by keyword overlap with the query.
// Used when no embedder is configured.
func (s *Store) SearchKeywords(query string, topK int) []Example {
	qt := keywordSet(query)
	type scored struct {
		ex    Example
		score float64
	}
	var matches []scored
	for _, ex := range s.Examples {
		sc := keywordOverlap(qt, keywordSet(ex.Instruction))
		if sc > 0 {
			matches = append(matches, scored{ex: ex, score: sc})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	out := make([]Example, len(matches))
	for i, m := range matches {
		out[i] = m.ex
	}
	return out
}

// CosineSim computes cosine similarity between two vectors. Returns 0 if
// dimensions mismatch.
func CosineSim(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	var na, nb float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func contentHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return fmt.Sprintf("%x", sum[:])
}
