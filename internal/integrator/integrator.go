// Package integrator advances the active layout's node positions by one
// adaptive explicit-Euler step given the forces forceengine.Compute
// accumulated (spec §4.5). Step size is adjusted every iteration based on
// whether total system energy improved, and convergence is reported once
// the step size has settled below a small threshold.
package integrator

import (
	"math"

	"github.com/onnwee/paperscape-layout/internal/layout"
)

// NoHold means Iterate should not pin any node's position this step.
const NoHold = -1

// State carries the adaptive step-size controller's memory across calls
// to Iterate; one State belongs to exactly one active layout over the
// life of a simulation.
type State struct {
	StepSize   float64
	Progress   int
	PrevEnergy float64
}

// NewState returns a State primed the way SelectDateRange seeds a fresh
// simulation: step size 1, no progress streak, infinite previous energy
// so the very first iteration is always treated as an improvement.
func NewState() *State {
	return &State{StepSize: 1, PrevEnergy: math.Inf(1)}
}

// Result reports the outcome of one Iterate call (spec §6 observation
// fields): Energy and the positional spread (XSD, YSD) of the
// recentered layout, for callers that want to auto-zoom a viewer.
type Result struct {
	Converged bool
	Energy    float64
	XSD, YSD  float64
}

// Iterate performs one adaptive step: divides accumulated force by mass,
// moves every node but holdStillIndex (pass NoHold to move all of them),
// recenters on the mass-weighted centroid, propagates positions down to
// level 0, and adapts State.StepSize for the next call. maxLinkForceMag
// is the value forceengine.Compute returned this iteration; when
// doCloseRepulsion is true and the system's total force still dwarfs its
// link forces, convergence is deferred and the step size is floored so
// the close-repulsion kernel gets a chance to separate overlapping nodes.
func Iterate(active *layout.Layout, maxLinkForceMag float64, state *State, holdStillIndex int, boost, doCloseRepulsion bool) Result {
	if boost {
		if state.StepSize < 1 {
			state.StepSize = 2
		} else {
			state.StepSize *= 2
		}
	}
	if doCloseRepulsion && state.StepSize > 1 {
		state.StepSize = 1
	}

	var energy, maxTotalForceMag float64
	for i, n := range active.Nodes {
		n.FX /= n.Mass
		n.FY /= n.Mass

		fmag := math.Hypot(n.FX, n.FY)
		if math.IsNaN(fmag) || math.IsInf(fmag, 0) {
			fmag = 1e100
		}
		if fmag > maxTotalForceMag {
			maxTotalForceMag = fmag
		}
		energy += fmag

		if i == holdStillIndex || fmag == 0 {
			continue
		}
		dt := state.StepSize / fmag
		n.X += dt * n.FX
		n.Y += dt * n.FY
	}

	var massSum, xSum, ySum float64
	for _, n := range active.Nodes {
		massSum += n.Mass
		xSum += n.Mass * n.X
		ySum += n.Mass * n.Y
	}
	var cx, cy float64
	if massSum > 0 {
		cx, cy = xSum/massSum, ySum/massSum
	}
	for _, n := range active.Nodes {
		n.X -= cx
		n.Y -= cy
	}

	var varX, varY float64
	for _, n := range active.Nodes {
		varX += n.Mass * n.X * n.X
		varY += n.Mass * n.Y * n.Y
	}
	var xsd, ysd float64
	if massSum > 0 {
		xsd = math.Sqrt(varX / massSum)
		ysd = math.Sqrt(varY / massSum)
	}

	layout.PropagatePositionsToChildren(active)

	switch {
	case math.IsNaN(energy) || math.IsInf(energy, 0):
		state.StepSize = 2
	case energy < state.PrevEnergy:
		if state.Progress < 3 {
			state.Progress++
		} else {
			state.StepSize = math.Min(5, state.StepSize*1.3)
		}
	default:
		state.Progress = 0
		state.StepSize = math.Max(0.025, state.StepSize*0.95)
	}
	state.PrevEnergy = energy

	if doCloseRepulsion && maxTotalForceMag > maxLinkForceMag*maxLinkForceMag {
		state.StepSize = math.Max(state.StepSize, 0.15)
		return Result{Converged: false, Energy: energy, XSD: xsd, YSD: ysd}
	}

	return Result{Converged: state.StepSize <= 0.1, Energy: energy, XSD: xsd, YSD: ysd}
}
