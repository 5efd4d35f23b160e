// Package mapenv exposes the layout engine's Core API (spec §6) as a
// single orchestrating type, wiring together condition, layout,
// forceengine, and integrator exactly in the sequence
// original_source/nbody/map.c's map_env_t functions do.
package mapenv

import (
	"math"
	"math/rand"
	"sort"

	"github.com/onnwee/paperscape-layout/internal/condition"
	"github.com/onnwee/paperscape-layout/internal/forceengine"
	"github.com/onnwee/paperscape-layout/internal/integrator"
	"github.com/onnwee/paperscape-layout/internal/layout"
	"github.com/onnwee/paperscape-layout/internal/model"
	"github.com/onnwee/paperscape-layout/internal/quadtree"
)

// MapEnv is the engine instance a caller drives via SetPapers,
// SelectDateRange, and Iterate. It is not safe for concurrent use — spec
// §5 requires Iterate never be called concurrently with itself or with
// any other mutating call; the ambient httpapi layer (internal/server)
// is responsible for serializing calls onto one goroutine per instance.
type MapEnv struct {
	All      []*model.Paper
	Keywords []*model.Keyword

	UseRefFreq  bool
	AgeWeaken   bool
	ComputeTred bool
	Params      forceengine.Params

	Working []*model.Paper
	Level0  *layout.Layout
	Active  *layout.Layout

	state           *integrator.State
	maxLinkForceMag float64
	rng             *rand.Rand
}

// New returns a MapEnv with default force parameters and no papers
// loaded; call SetPapers before SelectDateRange.
func New(rng *rand.Rand) *MapEnv {
	return &MapEnv{Params: forceengine.DefaultParams(), rng: rng}
}

// SetPapers installs the full paper arena and shared keyword set,
// sorting papers ascending by ID and assigning Index to match, per the
// ownership rule in spec §3 (Index is set once, here, by the loader).
func (m *MapEnv) SetPapers(all []*model.Paper, keywords []*model.Keyword) {
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for i, p := range all {
		p.Index = i
	}
	m.All = all
	m.Keywords = keywords
}

// SelectDateRange runs GraphConditioner over [idStart, idEnd] and makes
// the resulting coarsest layout active, with a freshly-seeded integrator
// state (step size 1), matching spec §4.6 step 12-13.
func (m *MapEnv) SelectDateRange(idStart, idEnd int64) error {
	result, err := condition.ConditionGraph(m.All, m.Keywords, condition.Options{
		IDStart:     idStart,
		IDEnd:       idEnd,
		UseRefFreq:  m.UseRefFreq,
		AgeWeaken:   m.AgeWeaken,
		ComputeTred: m.ComputeTred,
	}, m.rng)
	if err != nil {
		return err
	}

	m.Working = result.Papers
	m.Level0 = result.Level0
	m.Active = result.Active
	m.state = integrator.NewState()
	return nil
}

// Iterate computes forces on the active layout and advances it by one
// adaptive step. holdStillIndex pins one active-layout node in place
// (pass integrator.NoHold to move all of them); boost doubles the
// current step size before integrating, for a caller-requested "nudge".
func (m *MapEnv) Iterate(holdStillIndex int, boost bool) integrator.Result {
	m.maxLinkForceMag = forceengine.Compute(m.Active, m.Params)
	return integrator.Iterate(m.Active, m.maxLinkForceMag, m.state, holdStillIndex, boost, m.Params.CloseRepulsion.Enabled)
}

// NumCoarserLayouts and NumFinerLayouts report the active layout's
// distance from the top and bottom of the hierarchy (spec §6).
func (m *MapEnv) NumCoarserLayouts() int { return layout.NumCoarserLayouts(m.Active) }
func (m *MapEnv) NumFinerLayouts() int   { return layout.NumFinerLayouts(m.Active) }

// Coarsen and Refine move the active layout up or down one level.
func (m *MapEnv) Coarsen() { m.Active = layout.CoarsenUp(m.Active) }
func (m *MapEnv) Refine()  { m.Active = layout.RefineDown(m.Active) }

// GetNumPapers reports the size of the conditioned working set.
func (m *MapEnv) GetNumPapers() int { return len(m.Working) }

// GetMaxIDRange reports the ID span of the full loaded arena.
func (m *MapEnv) GetMaxIDRange() (idStart, idEnd int64) {
	if len(m.All) == 0 {
		return 0, 0
	}
	return m.All[0].ID, m.All[len(m.All)-1].ID
}

// Jolt nudges every active-layout node by a random offset scaled by amt,
// matching map_env_jolt — used to kick a converged layout out of a local
// arrangement.
func (m *MapEnv) Jolt(amt float64) {
	for _, n := range m.Active.Nodes {
		n.X += amt * (-0.5 + m.rng.Float64())
		n.Y += amt * (-0.5 + m.rng.Float64())
	}
}

// RotateAll rotates every active-layout node about the origin by angle
// radians.
func (m *MapEnv) RotateAll(angle float64) {
	cos, sin := math.Cos(angle), math.Sin(angle)
	for _, n := range m.Active.Nodes {
		x, y := n.X, n.Y
		n.X = x*cos - y*sin
		n.Y = x*sin + y*cos
	}
}

// FlipX mirrors every active-layout node across the Y axis.
func (m *MapEnv) FlipX() {
	for _, n := range m.Active.Nodes {
		n.X = -n.X
	}
}

// PaperAtWorld returns the conditioned paper whose disc contains (x, y)
// and is closest to it, or nil if none does — the hit-test spec §6's
// external renderer needs to translate a click into a paper.
func (m *MapEnv) PaperAtWorld(x, y float64) *model.Paper {
	var best *model.Paper
	bestDist := math.Inf(1)
	for _, p := range m.Working {
		d := math.Hypot(p.X-x, p.Y-y)
		if d <= p.R && d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// IndexOfPaper returns the position of paper id's level-0 node within the
// active layout's Nodes slice, for translating a hold-still request (spec
// §6's map_env_iterate hold_still argument) into the index Iterate expects.
// Only level-0 nodes carry a Paper back-reference, so this only succeeds
// while Active is the finest layout.
func (m *MapEnv) IndexOfPaper(id int64) (int, bool) {
	for i, n := range m.Active.Nodes {
		if n.Paper != nil && n.Paper.ID == id {
			return i, true
		}
	}
	return 0, false
}

// SetCloseRepulsion enables or disables the short-range repulsion kernel
// with the given force_params_t-style constants.
func (m *MapEnv) SetCloseRepulsion(enabled bool, a, b, c, d float64) {
	m.Params.CloseRepulsion = quadtree.CloseRepulsion{Enabled: enabled, A: a, B: b, C: c, D: d}
}

// ToggleDoCloseRepulsion flips whether the short-range repulsion kernel
// is applied, matching map_env_toggle_do_close_repulsion.
func (m *MapEnv) ToggleDoCloseRepulsion() {
	m.Params.CloseRepulsion.Enabled = !m.Params.CloseRepulsion.Enabled
}

// ToggleUseRefFreq flips whether link weights are scaled by reference
// frequency, matching map_env_toggle_use_ref_freq. Takes effect on the
// next SelectDateRange, since reference-frequency weighting is baked
// into BuildLevelZero's link weights at conditioning time.
func (m *MapEnv) ToggleUseRefFreq() {
	m.UseRefFreq = !m.UseRefFreq
}

// ToggleDoTred flips whether transitive reduction runs during
// conditioning, matching map_env_toggle_do_tred. Takes effect on the
// next SelectDateRange.
func (m *MapEnv) ToggleDoTred() {
	m.ComputeTred = !m.ComputeTred
}

// AdjustAntiGravity multiplies the Barnes-Hut anti-gravity strength by
// factor, matching map_env_adjust_anti_gravity.
func (m *MapEnv) AdjustAntiGravity(factor float64) {
	m.Params.AntiGravityStrength *= factor
}

// AdjustLinkStrength multiplies the spring link strength by factor,
// matching map_env_adjust_link_strength.
func (m *MapEnv) AdjustLinkStrength(factor float64) {
	m.Params.LinkStrength *= factor
}

// AdjustCloseRepulsion multiplies the close-repulsion kernel's a and b
// constants by aFactor and bFactor respectively, matching
// map_env_adjust_close_repulsion.
func (m *MapEnv) AdjustCloseRepulsion(aFactor, bFactor float64) {
	m.Params.CloseRepulsion.A *= aFactor
	m.Params.CloseRepulsion.B *= bFactor
}

// AdjustCloseRepulsion2 multiplies the close-repulsion kernel's c
// exponent by cFactor and adds dDelta to its d constant, matching
// map_env_adjust_close_repulsion2 (c is scaled, d is shifted, not
// scaled, in the original).
func (m *MapEnv) AdjustCloseRepulsion2(cFactor, dDelta float64) {
	m.Params.CloseRepulsion.C *= cFactor
	m.Params.CloseRepulsion.D += dDelta
}
