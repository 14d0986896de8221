// Package generate writes content for an analysis report and repairs it at
// most once when the draft misses its targets.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/internal/metrics"
	"github.com/cognicore/semantica/pkg/semantica/analysis"
	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/score"
	"github.com/cognicore/semantica/pkg/semantica/textgen"
)

// State is a step of the generation loop.
type State string

const (
	StateBuildPrompt State = "build_prompt"
	StateRequest     State = "request"
	StateEvaluate    State = "evaluate"
	StateRepair      State = "repair"
	StateReEvaluate  State = "re_evaluate"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

const systemPrompt = "You are an SEO copywriter. Return only valid HTML, without explanations."

// Options tunes the loop.
type Options struct {
	ReadabilityFloor float64  // default 70
	Temperature      *float64 // nil means 0.2; zero is honored
	MaxTokens        int      // default 4096
	Logger           logger.Logger
	Metrics          *metrics.Metrics
}

// Generator runs the generation loop against one text-generation client.
type Generator struct {
	client      textgen.Client
	scorer      *score.Scorer
	opts        Options
	temperature float64
	log         logger.Logger
}

// New creates a generator. A nil scorer uses the default thresholds.
func New(client textgen.Client, scorer *score.Scorer, opts Options) *Generator {
	if scorer == nil {
		scorer = score.New(score.DefaultThresholds())
	}
	if opts.ReadabilityFloor <= 0 {
		opts.ReadabilityFloor = 70
	}
	temperature := 0.2
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Generator{
		client:      client,
		scorer:      scorer,
		opts:        opts,
		temperature: temperature,
		log:         logger.OrNop(opts.Logger).With(logger.String("component", "generate")),
	}
}

// Outcome is the terminal result of one loop. HTML and Evaluation hold the
// best available draft; they are empty only when the first request failed.
type Outcome struct {
	State      State         `json:"state"`
	HTML       string        `json:"html"`
	Evaluation *score.Result `json:"evaluation,omitempty"`
	Initial    *score.Result `json:"initial_evaluation,omitempty"`
	Passed     bool          `json:"passed"`
	Repaired   bool          `json:"repaired"`
	RepairErr  string        `json:"repair_error,omitempty"`
	Unmet      []string      `json:"unmet,omitempty"`
	Tokens     int           `json:"tokens"`
	Trace      []State       `json:"trace"`
	Plan       Plan          `json:"plan"`
}

// Generate runs build_prompt, request, evaluate and, when targets are
// missed, a single repair followed by re_evaluate. A failed first request
// ends in StateFailed with an error wrapping internalerr.ErrGeneration and no
// content. A failed repair keeps the first draft.
func (g *Generator) Generate(ctx context.Context, keywords []string, rep *analysis.Report) (*Outcome, error) {
	out := &Outcome{}
	var (
		prompt string
		err    error
	)

	state := StateBuildPrompt
	for {
		out.Trace = append(out.Trace, state)
		switch state {
		case StateBuildPrompt:
			out.Plan = NewPlan(keywords, rep, g.scorer.Thresholds().MinWords)
			prompt = out.Plan.prompt()
			state = StateRequest

		case StateRequest:
			var resp textgen.Response
			resp, err = g.complete(ctx, prompt)
			if err != nil {
				state = StateFailed
				continue
			}
			out.Tokens += resp.Tokens
			out.HTML = resp.Text
			state = StateEvaluate

		case StateEvaluate:
			ev := g.scorer.Evaluate(out.HTML, rep)
			out.Evaluation, out.Initial = &ev, &ev
			out.Passed = ev.Passes(g.opts.ReadabilityFloor)
			if out.Passed {
				state = StateDone
				continue
			}
			out.Unmet = Unmet(out.Plan, &ev, g.opts.ReadabilityFloor)
			state = StateRepair

		case StateRepair:
			resp, rerr := g.complete(ctx, repairPrompt(out.Unmet, out.HTML))
			if rerr != nil {
				g.log.Warn("Repair request failed, keeping first draft", logger.Error(rerr))
				out.RepairErr = rerr.Error()
				state = StateDone
				continue
			}
			out.Tokens += resp.Tokens
			out.HTML = resp.Text
			out.Repaired = true
			state = StateReEvaluate

		case StateReEvaluate:
			ev := g.scorer.Evaluate(out.HTML, rep)
			out.Evaluation = &ev
			out.Passed = ev.Passes(g.opts.ReadabilityFloor)
			out.Unmet = Unmet(out.Plan, &ev, g.opts.ReadabilityFloor)
			state = StateDone

		case StateDone, StateFailed:
			out.State = state
			g.opts.Metrics.Generation(string(state), out.Repaired)
			if state == StateFailed {
				g.log.Error("Generation request failed", logger.Error(err))
				return out, fmt.Errorf("%w: %v", internalerr.ErrGeneration, err)
			}
			g.log.Info("Generation finished",
				logger.Bool("passed", out.Passed),
				logger.Bool("repaired", out.Repaired),
				logger.Int("words", out.Evaluation.WordCount),
			)
			return out, nil
		}
	}
}

// Optimization is the result of one repair pass over existing content.
type Optimization struct {
	HTML   string        `json:"html"`
	Before *score.Result `json:"before"`
	After  *score.Result `json:"after"`
	Unmet  []string      `json:"unmet"`
	Tokens int           `json:"tokens"`
}

// Optimize evaluates caller-provided HTML, sends one repair request listing
// what it misses and evaluates the answer. Content that already passes is
// returned unchanged without a request.
func (g *Generator) Optimize(ctx context.Context, html string, keywords []string, rep *analysis.Report) (*Optimization, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("%w: html is required", internalerr.ErrInvalidInput)
	}
	plan := NewPlan(keywords, rep, g.scorer.Thresholds().MinWords)
	before := g.scorer.Evaluate(html, rep)
	opt := &Optimization{HTML: html, Before: &before, After: &before}
	if before.Passes(g.opts.ReadabilityFloor) {
		return opt, nil
	}
	opt.Unmet = Unmet(plan, &before, g.opts.ReadabilityFloor)

	resp, err := g.complete(ctx, repairPrompt(opt.Unmet, html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrGeneration, err)
	}
	after := g.scorer.Evaluate(resp.Text, rep)
	opt.HTML, opt.After, opt.Tokens = resp.Text, &after, resp.Tokens
	return opt, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (textgen.Response, error) {
	if g.client == nil {
		return textgen.Response{}, errors.New("no text generation client")
	}
	resp, err := g.client.Complete(ctx, textgen.Request{
		Prompt:      prompt,
		System:      systemPrompt,
		Temperature: g.temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return resp, err
	}
	resp.Text = textgen.Clean(resp.Text)
	if resp.Text == "" {
		return resp, errors.New("empty completion")
	}
	return resp, nil
}
