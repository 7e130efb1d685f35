package plan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sheetwise/sheetwise/internal/ai"
	"github.com/sheetwise/sheetwise/internal/classify"
)

type scriptedRuntime struct {
	content string
	err     error
	gotReq  ai.GenerateRequest
	calls   int
}

func (s *scriptedRuntime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.calls++
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{
		Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s.content}}},
	}, nil
}

func testRouter(simple, complex *scriptedRuntime) *Router {
	return NewRouter(
		Profile{Runtime: simple, Model: "cheap-model", MaxTokens: 256, Temperature: 0},
		Profile{Runtime: complex, Model: "big-model", MaxTokens: 1024, Temperature: 0.2},
		5*time.Second,
	)
}

func TestRouteDispatchesByVerdict(t *testing.T) {
	planJSON := `{"operations": [{"op": "drop_duplicates", "params": {}, "description": "dedupe"}]}`
	simple := &scriptedRuntime{content: planJSON}
	complex := &scriptedRuntime{content: planJSON}
	r := testRouter(simple, complex)
	req := Request{Instruction: "remove duplicates", Columns: []string{"A"}}

	if _, err := r.Route(context.Background(), req, classify.Simple); err != nil {
		t.Fatalf("Route simple: %v", err)
	}
	if simple.calls != 1 || complex.calls != 0 {
		t.Fatalf("simple verdict should hit the simple profile (simple=%d complex=%d)", simple.calls, complex.calls)
	}
	if simple.gotReq.Model != "cheap-model" {
		t.Fatalf("model = %q", simple.gotReq.Model)
	}

	if _, err := r.Route(context.Background(), req, classify.Complex); err != nil {
		t.Fatalf("Route complex: %v", err)
	}
	if complex.calls != 1 {
		t.Fatalf("complex verdict should hit the complex profile")
	}
	if complex.gotReq.Model != "big-model" {
		t.Fatalf("model = %q", complex.gotReq.Model)
	}
}

func TestRoutePromptNeverCarriesFullDataset(t *testing.T) {
	planJSON := `{"operations": [{"op": "sort", "params": {"column": "Name"}}]}`
	rt := &scriptedRuntime{content: planJSON}
	r := testRouter(rt, rt)
	req := Request{
		Instruction: "sort by name",
		Columns:     []string{"Name"},
		SampleRows:  [][]string{{"alice"}, {"bob"}},
		Explanation: "Selected 2 rows out of 1000.",
	}
	if _, err := r.Route(context.Background(), req, classify.Simple); err != nil {
		t.Fatalf("Route: %v", err)
	}
	user := rt.gotReq.Messages[len(rt.gotReq.Messages)-1].Content
	for _, want := range []string{"alice", "bob", "Selected 2 rows", "sort by name"} {
		if !strings.Contains(user, want) {
			t.Fatalf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestRouteUpstreamError(t *testing.T) {
	rt := &scriptedRuntime{err: errors.New("provider down")}
	r := testRouter(rt, rt)
	_, err := r.Route(context.Background(), Request{Instruction: "x", Columns: []string{"A"}}, classify.Simple)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %T (%v)", err, err)
	}
}

func TestRouteUnparseableIsUpstream(t *testing.T) {
	rt := &scriptedRuntime{content: "I refuse to answer in JSON."}
	r := testRouter(rt, rt)
	_, err := r.Route(context.Background(), Request{Instruction: "x", Columns: []string{"A"}}, classify.Simple)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %T (%v)", err, err)
	}
}

func TestRouteInvalidPlanIsValidationError(t *testing.T) {
	rt := &scriptedRuntime{content: `{"operations": [{"op": "explode", "params": {}}]}`}
	r := testRouter(rt, rt)
	_, err := r.Route(context.Background(), Request{Instruction: "x", Columns: []string{"A"}}, classify.Simple)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
}

func TestRouteNormalizesLetterRefs(t *testing.T) {
	rt := &scriptedRuntime{content: `{"operations": [{"op": "sort", "params": {"column": "B"}}]}`}
	r := testRouter(rt, rt)
	p, err := r.Route(context.Background(), Request{Instruction: "x", Columns: []string{"Name", "Amount"}}, classify.Simple)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got := p.Operations[0].Primitive.Params["column"]; got != "Amount" {
		t.Fatalf("letter ref not normalized, got %v", got)
	}
}

func TestRouteNoRuntime(t *testing.T) {
	r := NewRouter(Profile{}, Profile{}, time.Second)
	_, err := r.Route(context.Background(), Request{Instruction: "x"}, classify.Simple)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError for missing runtime, got %v", err)
	}
}
