// Package forceengine computes, once per iteration, the net force on
// every node of the active layout: attractive spring forces along links
// plus Barnes-Hut anti-gravity (and optional short-range close
// repulsion) via internal/quadtree (spec §4.4).
package forceengine

import (
	"math"

	"github.com/onnwee/paperscape-layout/internal/layout"
	"github.com/onnwee/paperscape-layout/internal/quadtree"
)

// Params mirrors the force_params_t knobs from spec §6.
type Params struct {
	LinkStrength        float64
	AntiGravityStrength float64
	BarnesHutTheta      float64 // 0 forces exact N² anti-gravity evaluation
	CloseRepulsion      quadtree.CloseRepulsion
}

// DefaultParams matches the original's documented defaults.
func DefaultParams() Params {
	return Params{
		LinkStrength:        4.0,
		AntiGravityStrength: 1.0,
		BarnesHutTheta:      1.0,
		CloseRepulsion: quadtree.CloseRepulsion{
			Enabled: false,
			A:       1e8,
			B:       1e16,
			C:       1.1,
			D:       0.6,
		},
	}
}

// Compute accumulates FX/FY on every node of active and returns the
// largest per-node link-force magnitude observed before anti-gravity is
// added, used by the integrator's close-repulsion convergence override.
func Compute(active *layout.Layout, params Params) (maxLinkForceMag float64) {
	for _, n := range active.Nodes {
		n.FX, n.FY = 0, 0
	}

	for _, n := range active.Nodes {
		for _, link := range n.Links {
			m := link.Target
			dx, dy := m.X-n.X, m.Y-n.Y
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist < 1e-9 {
				dist = 1e-9
			}
			idealLen := n.Radius + m.Radius
			mag := params.LinkStrength * link.Weight * (dist - idealLen) / dist
			fx, fy := mag*dx, mag*dy
			n.FX += fx
			n.FY += fy
			m.FX -= fx
			m.FY -= fy
		}
	}

	for _, n := range active.Nodes {
		mag := math.Hypot(n.FX, n.FY)
		if mag > maxLinkForceMag {
			maxLinkForceMag = mag
		}
	}

	bodies := make([]quadtree.Body, len(active.Nodes))
	for i, n := range active.Nodes {
		bodies[i] = quadtree.Body{X: n.X, Y: n.Y, Mass: n.Mass}
	}
	var cr *quadtree.CloseRepulsion
	if params.CloseRepulsion.Enabled {
		cr = &params.CloseRepulsion
	}
	fx, fy := quadtree.Forces(bodies, params.BarnesHutTheta, params.AntiGravityStrength, cr)
	for i, n := range active.Nodes {
		n.FX += fx[i]
		n.FY += fy[i]
	}

	return maxLinkForceMag
}
