// Package engine provides the Lisp evaluation engine for gear train
// scripts. It wraps zygomys in a sandboxed environment and produces a
// DesignGraph from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/cogwright/pkg/graph"
	"github.com/chazu/cogwright/pkg/paramschema"
	"github.com/chazu/cogwright/pkg/partlib"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int          `json:"line,omitempty"`
	Col     int          `json:"col,omitempty"`
	Message string       `json:"message"`
	NodeID  graph.NodeID `json:"-"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int          `json:"line,omitempty"`
	Col     int          `json:"col,omitempty"`
	Message string       `json:"message"`
	NodeID  graph.NodeID `json:"-"`
}

// EvalResult bundles the full output of a checked evaluation.
type EvalResult struct {
	Graph    *graph.DesignGraph  `json:"-"`
	Params   []paramschema.Param `json:"params"`
	Errors   []EvalError         `json:"errors,omitempty"`
	Warnings []EvalWarning       `json:"warnings,omitempty"`
}

// OK reports whether evaluation and validation produced no errors.
func (r EvalResult) OK() bool { return r.Graph != nil && len(r.Errors) == 0 }

// Request is one evaluation: a script and optional parameter overrides
// keyed by defparam name.
type Request struct {
	Source string
	Params map[string]float64
}

// Engine wraps the zygomys interpreter for script evaluation.
// It is safe for concurrent use; each call creates a fresh sandboxed
// environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	modules ModuleLoader
	library partlib.Library
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithModules sets the loader used to resolve include forms.
func WithModules(m ModuleLoader) Option { return func(e *Engine) { e.modules = m } }

// WithLibrary sets the stock part library that supplies defaults for
// gear and rack forms.
func WithLibrary(l partlib.Library) Option { return func(e *Engine) { e.library = l } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout: EvalTimeout,
		library: partlib.Default(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes Lisp source code and produces a new DesignGraph.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval failure: returns nil graph + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	res, err := e.run(context.Background(), Request{Source: source})
	if err != nil {
		return nil, nil, err
	}
	return res.graph, res.errors, nil
}

// Check evaluates a request and validates the resulting graph. Structural
// and meshing errors are reported in Errors; advisory findings in
// Warnings. A fatal failure returns a non-nil error.
func (e *Engine) Check(ctx context.Context, req Request) (EvalResult, error) {
	res, err := e.run(ctx, req)
	if err != nil {
		return EvalResult{}, err
	}
	out := EvalResult{Graph: res.graph, Params: res.params, Errors: res.errors}
	if res.graph == nil {
		return out, nil
	}

	v := graph.ValidateAll(res.graph)
	for _, ve := range v.Errors {
		out.Errors = append(out.Errors, EvalError{Message: ve.Message, NodeID: ve.NodeID})
	}
	for _, vw := range v.Warnings {
		out.Warnings = append(out.Warnings, EvalWarning{Message: vw.Message, NodeID: vw.NodeID})
	}
	return out, nil
}

// run evaluates on a separate goroutine under the engine timeout.
func (e *Engine) run(ctx context.Context, req Request) (evalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		ch <- e.evaluate(ctx, req)
	}()

	res, err := waitWithTimeout(ctx, ch, e.timeout, gen, &e.mu, &e.generation)
	fields := []zap.Field{zap.Duration("elapsed", time.Since(start)), zap.Uint64("generation", gen)}
	switch {
	case err != nil:
		e.log.Warn("evaluation failed", append(fields, zap.Error(err))...)
	case res.graph == nil:
		e.log.Debug("evaluation reported errors", append(fields, zap.Int("errors", len(res.errors)))...)
	default:
		e.log.Debug("evaluation finished", append(fields, zap.Int("nodes", res.graph.NodeCount()))...)
	}
	return res, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, req Request) evalResult {
	// Empty source is a valid program that produces an empty graph.
	if strings.TrimSpace(req.Source) == "" {
		return evalResult{graph: graph.New(), params: []paramschema.Param{}}
	}

	source, errs := e.expandIncludes(ctx, req.Source, nil)
	if len(errs) > 0 {
		return evalResult{errors: errs}
	}
	source, params, errs := rewriteParams(source)
	if len(errs) > 0 {
		return evalResult{errors: errs}
	}

	sc := &scope{
		graph:     graph.New(),
		library:   e.library,
		params:    make(map[string]paramschema.Param, len(params)),
		overrides: req.Params,
	}
	for _, p := range params {
		sc.params[p.Name] = p
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, sc)

	// Load and compile the source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return evalResult{params: params, errors: parseZygomysError(err)}
	}

	// Execute the compiled bytecode.
	_, err = env.Run()
	if err != nil {
		return evalResult{params: params, errors: parseZygomysError(err)}
	}

	return evalResult{graph: sc.graph, params: params}
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// Try to extract line numbers from the error message.
	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
