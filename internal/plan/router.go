package plan

import (
	"context"
	"errors"
	"time"

	"github.com/sheetwise/sheetwise/internal/ai"
	"github.com/sheetwise/sheetwise/internal/classify"
)

// Profile pairs a runtime with the model and generation settings for one
// complexity tier.
type Profile struct {
	Runtime     ai.Runtime
	Model       string
	MaxTokens   int
	Temperature float64
}

// Router picks an execution tier from the complexity verdict and dispatches
// the plan-generation request. It forwards instruction, columns, sample
// rows, and explanation; never the full dataset.
type Router struct {
	Simple  Profile
	Complex Profile
	Timeout time.Duration
}

func NewRouter(simple, complex Profile, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Router{Simple: simple, Complex: complex, Timeout: timeout}
}

// Request carries everything the plan-generation collaborator receives.
type Request struct {
	Instruction string
	Columns     []string
	SampleRows  [][]string
	Explanation string
	Examples    []Example
}

// Route generates and validates an action plan. A provider failure or
// unparseable response surfaces as *UpstreamError; a parseable but
// structurally invalid plan surfaces as *ValidationError so callers can
// treat it as recoverable.
func (r *Router) Route(ctx context.Context, req Request, verdict classify.Complexity) (*Plan, error) {
	profile := r.Simple
	if verdict == classify.Complex {
		profile = r.Complex
	}
	if profile.Runtime == nil {
		return nil, &UpstreamError{Stage: "plan generation", Err: errors.New("no runtime configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	resp, err := profile.Runtime.Generate(ctx, ai.GenerateRequest{
		Model: profile.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req.Instruction, req.Columns, req.SampleRows, req.Explanation, req.Examples)},
		},
		MaxTokens:   profile.MaxTokens,
		Temperature: profile.Temperature,
	})
	if err != nil {
		return nil, &UpstreamError{Stage: "plan generation", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{Stage: "plan generation", Err: errors.New("empty response")}
	}

	p, err := Parse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &UpstreamError{Stage: "plan generation", Err: err}
	}
	NormalizeColumnRefs(p, req.Columns)
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}
