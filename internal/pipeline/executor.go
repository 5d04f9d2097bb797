package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/schema"
	"github.com/marcelocantos/sqlops/internal/tool"
	"github.com/marcelocantos/sqlops/internal/tool/builtin"
)

var (
	// ErrNoPriorResult is returned when a reference has nothing to point at.
	ErrNoPriorResult = errors.New("no prior result")

	// ErrTimeout is returned when a tool invocation outlives its deadline.
	ErrTimeout = errors.New("tool timed out")
)

// Overall completion summaries.
const (
	SummaryDone  = "All operations done."
	SummaryEmpty = "No operations to execute."
)

// State is the executor's position in a run.
type State int

const (
	Idle State = iota
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is everything a run produced. Results and Status are in
// execution order.
type Outcome struct {
	RunID    string
	Results  []op.Record
	Status   []string
	Summary  string
	Failed   int // operations that produced no result
	Pending  int // queue length when the run ended
	Duration time.Duration
}

// Tools returns the tool name of each result.
func (o *Outcome) Tools() []string {
	names := make([]string, len(o.Results))
	for i, r := range o.Results {
		names[i] = r.Tool
	}
	return names
}

// Option configures an Executor.
type Option func(*Executor)

// WithPatcher sets the condition patcher applied to Query operations.
func WithPatcher(p *schema.Patcher) Option {
	return func(e *Executor) { e.patcher = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithTimeout bounds every tool invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithToolTimeouts overrides the bound for individual tools.
func WithToolTimeouts(m map[string]time.Duration) Option {
	return func(e *Executor) {
		for k, v := range m {
			e.timeouts[k] = v
		}
	}
}

// WithStateHook calls fn on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(e *Executor) { e.onState = fn }
}

// Executor drains operation lists against a tool registry. An Executor
// holds no per-run state and can be reused; each Run owns its own queue,
// history and status log.
type Executor struct {
	reg      *tool.Registry
	patcher  *schema.Patcher
	logger   *slog.Logger
	timeout  time.Duration
	timeouts map[string]time.Duration
	onState  func(State)
}

// New creates an Executor over reg.
func New(reg *tool.Registry, opts ...Option) *Executor {
	e := &Executor{
		reg:      reg,
		timeouts: make(map[string]time.Duration),
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// run is the state of one Run call.
type run struct {
	queue   []op.Operation
	results []op.Record
	status  []string
	failed  int
	state   State
}

// Run executes ops strictly in order. It never returns an error: every
// failure is recorded in the status log and the queue always drains.
func (e *Executor) Run(ctx context.Context, ops []op.Operation) *Outcome {
	start := time.Now()
	r := &run{queue: slices.Clone(ops)}
	id := uuid.NewString()
	log := e.logger.With("run_id", id)
	e.transition(r, Idle)

	if len(r.queue) > 0 {
		e.transition(r, Draining)
		log.Debug("run started", "operations", len(r.queue))
	}
	for len(r.queue) > 0 {
		next := r.queue[0]
		e.step(ctx, log, r, next)
		r.queue = r.queue[1:]
	}
	e.transition(r, Done)

	out := &Outcome{
		RunID:    id,
		Results:  r.results,
		Status:   r.status,
		Summary:  SummaryDone,
		Failed:   r.failed,
		Pending:  len(r.queue),
		Duration: time.Since(start),
	}
	if len(ops) == 0 {
		out.Summary = SummaryEmpty
	}
	log.Debug("run finished", "results", len(out.Results), "failed", out.Failed, "duration", out.Duration)
	return out
}

func (e *Executor) transition(r *run, s State) {
	r.state = s
	if e.onState != nil {
		e.onState(s)
	}
}

// step processes one operation. Every path appends exactly one status entry.
func (e *Executor) step(ctx context.Context, log *slog.Logger, r *run, o op.Operation) {
	log = log.With("tool", o.Tool)

	t, err := e.reg.Lookup(o.Tool)
	if err != nil {
		log.Warn("operation dropped", "error", err)
		r.fail(fmt.Sprintf("Tool '%s' not found in tools.", o.Tool))
		return
	}

	params, err := resolve(o.Args, r.results)
	if err != nil {
		log.Warn("operation dropped", "error", err)
		r.fail(unresolvedStatus(err))
		return
	}

	if o.Tool == builtin.QueryName && e.patcher != nil {
		e.patchQuery(log, params)
	}

	log.Debug("invoking tool", "args", argKeys(params))
	payload, err := e.invoke(ctx, t, params)
	if err != nil {
		log.Warn("tool failed", "error", err)
		r.fail(fmt.Sprintf("Error running '%s': %v", o.Tool, err))
		return
	}

	r.results = append(r.results, op.Record{Tool: o.Tool, Payload: payload})
	r.status = append(r.status, successStatus(o.Tool, payload))
}

func (r *run) fail(status string) {
	r.status = append(r.status, status)
	r.failed++
}

// patchQuery rewrites the conditions argument in place. params is already a
// fresh map owned by this invocation.
func (e *Executor) patchQuery(log *slog.Logger, params tool.Params) {
	raw, ok := params["conditions"]
	if !ok {
		return
	}
	spec, err := op.QuerySpecOf(raw)
	if err != nil {
		return
	}
	patched := e.patcher.Patch(spec)
	if patched.SQL() != spec.SQL() {
		log.Debug("patched query", "from", spec.SQL(), "to", patched.SQL())
	}
	params["conditions"] = patched
}

func (e *Executor) timeoutFor(name string) time.Duration {
	if d, ok := e.timeouts[name]; ok {
		return d
	}
	return e.timeout
}

// invoke runs the tool under its deadline and category gate. A tool that
// ignores ctx is abandoned when the deadline passes.
func (e *Executor) invoke(ctx context.Context, t tool.Tool, params tool.Params) (any, error) {
	if err := e.reg.CheckCategory(t.Category()); err != nil {
		return nil, err
	}
	d := e.timeoutFor(t.Name())
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return nil, err
	}

	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("tool panicked: %v", p)}
			}
		}()
		v, err := t.Invoke(ctx, params)
		ch <- result{v, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, d, res.err)
		}
		return res.v, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return nil, ctx.Err()
	}
}

func successStatus(name string, payload any) string {
	if payload == nil {
		return name + " done. No value."
	}
	if n, ok := sequenceLen(payload); ok {
		return fmt.Sprintf("%s done. Rows=%d", name, n)
	}
	return name + " done."
}

// sequenceLen reports the length of slice and array payloads.
func sequenceLen(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func argKeys(p tool.Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
