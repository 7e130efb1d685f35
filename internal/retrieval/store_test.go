package retrieval

import (
	"context"
	"fmt"
	"math"
	"testing"
)

type fakeEmbedder struct {
	dim   int
	calls int
	got   []string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.got = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[i%f.dim] = 1
		out[i] = vec
	}
	return out, nil
}

func TestOpenMissingStoreIsEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.Examples) != 0 || s.Meta.StoreVersion != 1 {
		t.Fatalf("unexpected fresh store: %+v", s)
	}
}

func TestAddDeduplicatesOnInstruction(t *testing.T) {
	s, _ := Open(t.TempDir())
	a := s.Add("sort by Amount", `{"operations":[]}`)
	b := s.Add("sort by Amount", `{"operations":["different"]}`)
	c := s.Add("delete column Notes", `{"operations":[]}`)

	if a.ID != b.ID {
		t.Fatalf("duplicate instruction got a new entry: %s vs %s", a.ID, b.ID)
	}
	if b.Plan != a.Plan {
		t.Fatalf("duplicate add must keep the original plan")
	}
	if len(s.Examples) != 2 {
		t.Fatalf("examples = %d, want 2", len(s.Examples))
	}
	if a.ID == c.ID {
		t.Fatalf("distinct instructions share an ID")
	}
	if len(a.ID) != len("ex_")+12 {
		t.Fatalf("ID shape: %q", a.ID)
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	ex := s.Add("remove duplicates", `{"operations":[{"primitive":{"kind":"drop_duplicates"},"description":"d"}]}`)
	s.Examples[0].Vector = []float32{1, 0}
	s.Meta.EmbedProvider = "openrouter"
	s.Meta.EmbedModel = "text-embedding-3-small"
	s.Meta.EmbedDim = 2
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(got.Examples) != 1 || got.Examples[0].ID != ex.ID {
		t.Fatalf("round trip lost the example: %+v", got.Examples)
	}
	if got.Examples[0].Plan != ex.Plan || got.Examples[0].Hash != ex.Hash {
		t.Fatalf("round trip changed fields: %+v", got.Examples[0])
	}
	if got.Meta.EmbedDim != 2 || got.Meta.EmbedModel != "text-embedding-3-small" {
		t.Fatalf("meta = %+v", got.Meta)
	}
	if got.Meta.UpdatedAt.IsZero() {
		t.Fatalf("Save must stamp UpdatedAt")
	}
}

func TestEmbedOnlyMissingVectors(t *testing.T) {
	s, _ := Open(t.TempDir())
	s.Add("first", "{}")
	s.Add("second", "{}")
	s.Examples[0].Vector = []float32{1, 0, 0}
	s.Meta.EmbedProvider = "openrouter"
	s.Meta.EmbedModel = "m1"
	s.Meta.EmbedDim = 3

	emb := &fakeEmbedder{dim: 3}
	if err := s.Embed(context.Background(), emb, "openrouter", "m1"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if emb.calls != 1 || len(emb.got) != 1 || emb.got[0] != "second" {
		t.Fatalf("expected one embedding call for the unembedded example, got %v", emb.got)
	}
	if len(s.Examples[0].Vector) != 3 || len(s.Examples[1].Vector) != 3 {
		t.Fatalf("vectors not filled: %+v", s.Examples)
	}
}

func TestEmbedModelChangeInvalidatesVectors(t *testing.T) {
	s, _ := Open(t.TempDir())
	s.Add("first", "{}")
	s.Add("second", "{}")
	s.Examples[0].Vector = []float32{1}
	s.Examples[1].Vector = []float32{0}
	s.Meta.EmbedProvider = "openrouter"
	s.Meta.EmbedModel = "m1"
	s.Meta.EmbedDim = 1

	emb := &fakeEmbedder{dim: 4}
	if err := s.Embed(context.Background(), emb, "ollama", "m2"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb.got) != 2 {
		t.Fatalf("model change must re-embed everything, got %v", emb.got)
	}
	if s.Meta.EmbedProvider != "ollama" || s.Meta.EmbedModel != "m2" || s.Meta.EmbedDim != 4 {
		t.Fatalf("meta = %+v", s.Meta)
	}
}

func TestEmbedNilEmbedder(t *testing.T) {
	s, _ := Open(t.TempDir())
	s.Add("x", "{}")
	if err := s.Embed(context.Background(), nil, "p", "m"); err == nil {
		t.Fatalf("nil embedder should fail")
	}
}

func TestEmbedNoPendingWork(t *testing.T) {
	s, _ := Open(t.TempDir())
	s.Add("x", "{}")
	s.Examples[0].Vector = []float32{1}
	s.Meta.EmbedProvider = "p"
	s.Meta.EmbedModel = "m"
	emb := &fakeEmbedder{dim: 1}
	if err := s.Embed(context.Background(), emb, "p", "m"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if emb.calls != 0 {
		t.Fatalf("embedder called with nothing to embed")
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	s, _ := Open(t.TempDir())
	for i, vec := range [][]float32{
		{1, 0},        // aligned with query
		{0.7, 0.7},    // partial
		{0, 1},        // orthogonal
		{-1, 0},       // opposite
		{0.99, 0.141}, // nearly aligned
	} {
		ex := s.Add(fmt.Sprintf("example %d", i), "{}")
		for j := range s.Examples {
			if s.Examples[j].ID == ex.ID {
				s.Examples[j].Vector = vec
			}
		}
	}

	got := s.Search([]float32{1, 0}, 3, 0.5)
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
	if got[0].Instruction != "example 0" || got[1].Instruction != "example 4" || got[2].Instruction != "example 1" {
		t.Fatalf("order = %q, %q, %q", got[0].Instruction, got[1].Instruction, got[2].Instruction)
	}
}

func TestSearchMinScoreAndMismatchedDims(t *testing.T) {
	s, _ := Open(t.TempDir())
	s.Add("a", "{}")
	s.Add("b", "{}")
	s.Examples[0].Vector = []float32{0.1, 1} // low similarity to query
	s.Examples[1].Vector = []float32{1}      // wrong dimension

	got := s.Search([]float32{1, 0}, 10, 0.5)
	if len(got) != 0 {
		t.Fatalf("results = %v, want none", got)
	}
}

func TestSearchKeywordsJaccard(t *testing.T) {
	s, _ := Open(t.TempDir())
	s.Add("delete the Notes column", "{}")
	s.Add("sort rows by Amount descending", "{}")
	s.Add("highlight duplicate rows", "{}")

	got := s.SearchKeywords("sort by amount", 2)
	if len(got) == 0 {
		t.Fatalf("no matches")
	}
	if got[0].Instruction != "sort rows by Amount descending" {
		t.Fatalf("top match = %q", got[0].Instruction)
	}

	if got := s.SearchKeywords("quarterly forecast", 5); len(got) != 0 {
		t.Fatalf("unrelated query matched: %v", got)
	}
}

func TestCosineSim(t *testing.T) {
	if got := CosineSim([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical = %v", got)
	}
	if got := CosineSim([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal = %v", got)
	}
	if got := CosineSim([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("dim mismatch = %v", got)
	}
	if got := CosineSim(nil, nil); got != 0 {
		t.Fatalf("empty = %v", got)
	}
	if got := CosineSim([]float32{1, 1}, []float32{0, 0}); got != 0 {
		t.Fatalf("zero norm = %v", got)
	}
}
