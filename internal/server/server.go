// Package server serializes access to a single *mapenv.MapEnv onto one
// dedicated goroutine, the Go-idiomatic realization of spec.md §5's "never
// call Iterate concurrently with itself or any other mutating call" rule.
// It mirrors the teacher's Server type (which wrapped one *db.Queries
// connection pool and a background metrics collector) but wraps the
// layout engine's core instead of a database handle.
package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/onnwee/paperscape-layout/internal/errs"
	"github.com/onnwee/paperscape-layout/internal/integrator"
	"github.com/onnwee/paperscape-layout/internal/logger"
	"github.com/onnwee/paperscape-layout/internal/mapenv"
	"github.com/onnwee/paperscape-layout/internal/metrics"
	"github.com/onnwee/paperscape-layout/internal/model"
)

// SnapshotPoint is one included paper's position, encoded the way
// spec.md §6 assigns to the external JSON serializer: [id, x*20, y*20,
// r*20]. MarshalJSON below produces that 4-element array shape rather
// than a field-named object.
type SnapshotPoint struct {
	ID   int64
	X, Y float64
	R    float64
}

const positionScale = 20

// MarshalJSON encodes a SnapshotPoint as a 4-element array rather than a
// field-named object, matching the wire shape spec.md §6 assigns to the
// external JSON serializer.
func (s SnapshotPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{float64(s.ID), s.X, s.Y, s.R})
}

// RangeSelection reports what a SelectRange call produced.
type RangeSelection struct {
	NumPapers         int
	NumCoarserLayouts int
	NumFinerLayouts   int
}

// command is one call serialized onto the Engine's dedicated goroutine.
type command struct {
	run  func(*mapenv.MapEnv) (interface{}, error)
	resp chan commandResult
}

type commandResult struct {
	val interface{}
	err error
}

// Frame is what the Engine broadcasts to stream subscribers after every
// background or client-triggered Iterate.
type Frame struct {
	Converged bool
	Points    []SnapshotPoint
}

// Engine owns one MapEnv and exposes it as a set of request/response
// calls a concurrent HTTP server can drive safely, plus a background
// simulation loop that keeps nudging the active layout toward
// convergence and broadcasts a Frame to every subscriber after each step.
type Engine struct {
	env  *mapenv.MapEnv
	cmds chan command

	subs   map[chan Frame]struct{}
	subReg chan chan Frame
	subUn  chan chan Frame

	selected   bool
	generation atomic.Int64
}

// Generation returns a counter bumped after every call that changes the
// active layout (SelectRange, Iterate, Coarsen, Refine, Jolt, Rotate,
// FlipX, and the force-parameter toggles/adjustments). Callers use it to
// key a cache entry that must be invalidated whenever the layout moves,
// without needing the cache to understand MapEnv's internals.
func (e *Engine) Generation() int64 { return e.generation.Load() }

// NewEngine returns an Engine around a fresh MapEnv, seeded from rng.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{
		env:    mapenv.New(rng),
		cmds:   make(chan command),
		subs:   make(map[chan Frame]struct{}),
		subReg: make(chan chan Frame),
		subUn:  make(chan chan Frame),
	}
}

// Run is the Engine's dedicated goroutine: it drains cmds (one at a
// time, so every mutating call is fully serialized) and drives a
// background simulation tick every interval, broadcasting a Frame after
// each tick's Iterate. It returns when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, simInterval time.Duration) {
	ticker := time.NewTicker(simInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ch := <-e.subReg:
			e.subs[ch] = struct{}{}

		case ch := <-e.subUn:
			delete(e.subs, ch)
			close(ch)

		case cmd := <-e.cmds:
			val, err := cmd.run(e.env)
			cmd.resp <- commandResult{val: val, err: err}

		case <-ticker.C:
			if !e.selected {
				continue
			}
			e.backgroundIterate()
		}
	}
}

func (e *Engine) backgroundIterate() {
	start := time.Now()
	result := e.env.Iterate(integrator.NoHold, false)
	e.generation.Add(1)
	metrics.IterationDuration.Observe(time.Since(start).Seconds())
	metrics.IterationsTotal.WithLabelValues(boolLabel(result.Converged)).Inc()
	metrics.Energy.Set(result.Energy)

	frame := Frame{Converged: result.Converged, Points: snapshotPoints(e.env)}
	for ch := range e.subs {
		select {
		case ch <- frame:
		default:
			logger.Warn("layout stream subscriber buffer full, dropping frame")
		}
	}
	if len(e.subs) > 0 {
		metrics.WebSocketFramesSent.Inc()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// call runs fn on the Engine goroutine and waits for its result.
func (e *Engine) call(ctx context.Context, fn func(*mapenv.MapEnv) (interface{}, error)) (interface{}, error) {
	resp := make(chan commandResult, 1)
	select {
	case e.cmds <- command{run: fn, resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetPapers installs the paper arena the Engine will select ranges from;
// called once at startup after internal/store has loaded the data.
func (e *Engine) SetPapers(ctx context.Context, papers []*model.Paper, keywords []*model.Keyword) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) {
		m.SetPapers(papers, keywords)
		return nil, nil
	})
	e.generation.Add(1)
	return err
}

// SelectRange runs SelectDateRange and reports the resulting counts.
func (e *Engine) SelectRange(ctx context.Context, idStart, idEnd int64, ageWeaken bool) (RangeSelection, error) {
	v, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) {
		m.AgeWeaken = ageWeaken
		if err := m.SelectDateRange(idStart, idEnd); err != nil {
			return nil, err
		}
		e.selected = true
		return RangeSelection{
			NumPapers:         m.GetNumPapers(),
			NumCoarserLayouts: m.NumCoarserLayouts(),
			NumFinerLayouts:   m.NumFinerLayouts(),
		}, nil
	})
	if err != nil {
		metrics.DateRangeSelections.WithLabelValues(selectionStatus(err)).Inc()
		return RangeSelection{}, err
	}
	e.generation.Add(1)
	metrics.DateRangeSelections.WithLabelValues("ok").Inc()
	sel := v.(RangeSelection)
	metrics.ConditionedPapers.Set(float64(sel.NumPapers))
	metrics.HierarchyLevels.Set(float64(sel.NumCoarserLayouts + sel.NumFinerLayouts + 1))
	return sel, nil
}

func selectionStatus(err error) string {
	if e, ok := err.(*errs.Error); ok {
		return e.Kind.String()
	}
	return "error"
}

// Iterate runs one on-demand Iterate, requested explicitly by a client
// rather than the background loop (e.g. stepping while paused).
func (e *Engine) Iterate(ctx context.Context, holdStillID int64, boost bool) (integrator.Result, error) {
	v, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) {
		if !e.selected {
			return nil, errs.New(errs.Unknown, "no date range selected")
		}
		holdStillIndex := integrator.NoHold
		if holdStillID != 0 {
			if idx, ok := m.IndexOfPaper(holdStillID); ok {
				holdStillIndex = idx
			}
		}
		return m.Iterate(holdStillIndex, boost), nil
	})
	if err != nil {
		return integrator.Result{}, err
	}
	e.generation.Add(1)
	result := v.(integrator.Result)
	metrics.IterationsTotal.WithLabelValues(boolLabel(result.Converged)).Inc()
	metrics.Energy.Set(result.Energy)
	metrics.PositionStdDevX.Set(result.XSD)
	metrics.PositionStdDevY.Set(result.YSD)
	return result, nil
}

// Snapshot returns the current position of every included paper.
func (e *Engine) Snapshot(ctx context.Context) ([]SnapshotPoint, error) {
	v, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) {
		if !e.selected {
			return nil, errs.New(errs.Unknown, "no date range selected")
		}
		return snapshotPoints(m), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]SnapshotPoint), nil
}

func snapshotPoints(m *mapenv.MapEnv) []SnapshotPoint {
	points := make([]SnapshotPoint, 0, len(m.Working))
	for _, p := range m.Working {
		if !p.Included {
			continue
		}
		x, y := p.X, p.Y
		if p.LayoutNode != nil {
			x, y = p.LayoutNode.WorldXY()
		}
		points = append(points, SnapshotPoint{ID: p.ID, X: x * positionScale, Y: y * positionScale, R: p.R * positionScale})
	}
	return points
}

// Coarsen, Refine, Jolt, Rotate, and FlipX are thin wrappers around the
// matching MapEnv methods, each serialized onto the Engine goroutine.
func (e *Engine) Coarsen(ctx context.Context) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.Coarsen(); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) Refine(ctx context.Context) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.Refine(); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) Jolt(ctx context.Context, amt float64) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.Jolt(amt); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) Rotate(ctx context.Context, angle float64) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.RotateAll(angle); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) FlipX(ctx context.Context) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.FlipX(); return nil, nil })
	e.generation.Add(1)
	return err
}

// ToggleDoCloseRepulsion, ToggleUseRefFreq, ToggleDoTred, AdjustAntiGravity,
// AdjustLinkStrength, AdjustCloseRepulsion, and AdjustCloseRepulsion2 expose
// spec.md §6's force-parameter controller API, each serialized onto the
// Engine goroutine like every other mutating call.
func (e *Engine) ToggleDoCloseRepulsion(ctx context.Context) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.ToggleDoCloseRepulsion(); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) ToggleUseRefFreq(ctx context.Context) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.ToggleUseRefFreq(); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) ToggleDoTred(ctx context.Context) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.ToggleDoTred(); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) AdjustAntiGravity(ctx context.Context, factor float64) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.AdjustAntiGravity(factor); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) AdjustLinkStrength(ctx context.Context, factor float64) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) { m.AdjustLinkStrength(factor); return nil, nil })
	e.generation.Add(1)
	return err
}

func (e *Engine) AdjustCloseRepulsion(ctx context.Context, aFactor, bFactor float64) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) {
		m.AdjustCloseRepulsion(aFactor, bFactor)
		return nil, nil
	})
	e.generation.Add(1)
	return err
}

func (e *Engine) AdjustCloseRepulsion2(ctx context.Context, cFactor, dDelta float64) error {
	_, err := e.call(ctx, func(m *mapenv.MapEnv) (interface{}, error) {
		m.AdjustCloseRepulsion2(cFactor, dDelta)
		return nil, nil
	})
	e.generation.Add(1)
	return err
}

// Subscribe registers a new layout-stream viewer, returning a channel
// that receives a Frame after every Iterate the background loop performs.
// The caller must Unsubscribe when done to avoid leaking the channel.
func (e *Engine) Subscribe() chan Frame {
	ch := make(chan Frame, 8)
	e.subReg <- ch
	return ch
}

// Unsubscribe removes a viewer registered with Subscribe.
func (e *Engine) Unsubscribe(ch chan Frame) {
	e.subUn <- ch
}
