// Package layout implements the coarsening hierarchy described in spec
// §3/§4.3: a stack of progressively coarser node sets built by repeatedly
// matching highly-coupled pairs, with edges aggregating from finer to
// coarser layers. This is the teacher's barnesHutNode/quadtree idiom
// (plain structs + explicit recursion, no generics) generalized from a
// flat particle array to a parent/child hierarchy.
package layout

import (
	"math"

	"github.com/onnwee/paperscape-layout/internal/model"
)

const piConst = math.Pi

func sqrt(v float64) float64 { return math.Sqrt(v) }

// Link is a directed, weighted edge from one LayoutNode to another.
// Self-loops produced by coarsening aggregation are never stored.
type Link struct {
	Target *LayoutNode
	Weight float64
}

// LayoutNode is one node at some level of the coarsening hierarchy.
// Level-0 nodes correspond 1:1 with included, connected papers; every
// higher level aggregates one or two children from the level below.
type LayoutNode struct {
	X, Y   float64
	Mass   float64
	Radius float64
	FX, FY float64

	Links []Link

	Parent         *LayoutNode
	Child1, Child2 *LayoutNode // Child2 may be nil

	Paper *model.Paper // set only when this is a level-0 node

	index int // position within its Layout's Nodes slice; used for matching tie-breaks
}

// WorldXY implements model.LayoutNodeRef so a Paper can weakly reference
// its level-0 LayoutNode without the model package importing layout.
func (n *LayoutNode) WorldXY() (float64, float64) { return n.X, n.Y }

// Layout is one level of the hierarchy: an ordered set of LayoutNodes plus
// links to the coarser and finer neighboring levels.
type Layout struct {
	Nodes []*LayoutNode

	ParentLayout *Layout // next coarser level, nil at the top
	ChildLayout  *Layout // next finer level, nil at level 0 (the papers)
}

// NumLinks reports the total number of directed edges in this layout,
// used by GraphConditioner to decide when coarsening has bottomed out
// (spec §4.6 step 11: "until the top layout has <= 1 link").
func (l *Layout) NumLinks() int {
	n := 0
	for _, node := range l.Nodes {
		n += len(node.Links)
	}
	return n
}

// BuildLevelZero constructs the finest layout from a working set of
// papers (spec §4.3 "Initial (finest) layout"). Edges come from each
// paper's references plus any fake links created by GraphConditioner;
// only edges whose target is also in the working set are kept. When
// useRefFreq is true each paper's outgoing edges are weighted by the
// reciprocal of its out-degree within the working set. When ageWeaken is
// true, weight is attenuated by the age difference between endpoints
// (spec §9 Open Question: the exact curve is undocumented in the
// original; we fold a single attenuation factor into the stored weight
// at construction time so later coarsening just sums weights, per spec
// §4.3's aggregation rule).
func BuildLevelZero(papers []*model.Paper, useRefFreq, ageWeaken bool) *Layout {
	nodes := make([]*LayoutNode, len(papers))
	nodeOf := make(map[*model.Paper]*LayoutNode, len(papers))
	for i, p := range papers {
		n := &LayoutNode{Mass: p.Mass, Radius: p.R, Paper: p, index: i}
		nodes[i] = n
		nodeOf[p] = n
		p.LayoutNode = n
	}

	for i, p := range papers {
		n := nodes[i]
		targets := outEdges(p, nodeOf)
		if len(targets) == 0 {
			continue
		}
		weight := 1.0
		if useRefFreq {
			weight = 1.0 / float64(len(targets))
		}
		for _, target := range targets {
			w := weight
			if ageWeaken {
				w *= ageAttenuation(p.Age, target.Paper.Age)
			}
			n.Links = append(n.Links, Link{Target: target, Weight: w})
		}
	}

	return &Layout{Nodes: nodes}
}

// outEdges returns the in-working-set targets a paper links to via
// references and fake links, in reference-then-fake-link order. Targets
// are not de-duplicated: a paper reached twice appears twice.
func outEdges(p *model.Paper, nodeOf map[*model.Paper]*LayoutNode) []*LayoutNode {
	var targets []*LayoutNode
	for _, r := range p.Refs {
		if n, ok := nodeOf[r]; ok {
			targets = append(targets, n)
		}
	}
	for _, f := range p.FakeLinks {
		if n, ok := nodeOf[f]; ok {
			targets = append(targets, n)
		}
	}
	return targets
}

// ageAttenuation mirrors the original's undocumented "weakening links
// that have a large difference in age" behaviour with a simple linear
// falloff, floored so no link is ever fully zeroed (spec §9 Open
// Question, decision recorded in DESIGN.md).
func ageAttenuation(age1, age2 float64) float64 {
	d := age1 - age2
	if d < 0 {
		d = -d
	}
	factor := 1 - d
	if factor < 0.05 {
		factor = 0.05
	}
	return factor
}

// Coarsen builds the next, coarser layout from l by matching each
// unmatched node with its heaviest-weight unmatched neighbour (spec
// §4.3 "Coarsening step"). Ties are broken by lowest neighbour index,
// which keeps the result reproducible across runs (spec §9 Open
// Question). The returned layout's ChildLayout is l; l.ParentLayout is
// set to the returned layout.
func (l *Layout) Coarsen() *Layout {
	n := len(l.Nodes)
	adjacency := make([]map[int]float64, n)
	for i := range adjacency {
		adjacency[i] = make(map[int]float64)
	}
	for i, node := range l.Nodes {
		for _, link := range node.Links {
			j := link.Target.index
			if j == i {
				continue
			}
			adjacency[i][j] += link.Weight
			adjacency[j][i] += link.Weight
		}
	}

	matched := make([]bool, n)
	parentOf := make([]*LayoutNode, n)
	var parents []*LayoutNode

	for i := 0; i < n; i++ {
		if matched[i] {
			continue
		}
		best := -1
		bestWeight := 0.0
		for j, w := range adjacency[i] {
			if matched[j] {
				continue
			}
			if best == -1 || w > bestWeight || (w == bestWeight && j < best) {
				best = j
				bestWeight = w
			}
		}
		child1 := l.Nodes[i]
		parent := &LayoutNode{Child1: child1, index: len(parents)}
		child1.Parent = parent
		matched[i] = true
		if best != -1 {
			child2 := l.Nodes[best]
			parent.Child2 = child2
			child2.Parent = parent
			matched[best] = true
			parent.Mass = child1.Mass + child2.Mass
			parentOf[best] = parent
		} else {
			parent.Mass = child1.Mass
		}
		parent.Radius = sqrt(parent.Mass / piConst)
		parentOf[i] = parent
		parents = append(parents, parent)
	}

	// Aggregate cross-pair edges; self-loops produced by collapsing an
	// intra-pair edge are discarded, matching spec §4.3.
	type key struct{ from, to int }
	agg := make(map[key]float64)
	for i, node := range l.Nodes {
		pi := parentOf[i].index
		for _, link := range node.Links {
			j := link.Target.index
			pj := parentOf[j].index
			if pi == pj {
				continue
			}
			agg[key{pi, pj}] += link.Weight
		}
	}
	for k, w := range agg {
		parents[k.from].Links = append(parents[k.from].Links, Link{Target: parents[k.to], Weight: w})
	}

	coarser := &Layout{Nodes: parents, ChildLayout: l}
	l.ParentLayout = coarser
	return coarser
}

// BuildHierarchy repeatedly coarsens l up to maxLevels times, stopping
// early once a level has <= 1 link, per spec §4.6 step 11. It returns
// the finest (level-0) layout.
func BuildHierarchy(l *Layout, maxLevels int) *Layout {
	cur := l
	for i := 0; i < maxLevels && cur.NumLinks() > 1; i++ {
		cur = cur.Coarsen()
	}
	return l
}

// CoarsenUp switches the active layout pointer from l to its parent,
// copying each parent's coordinates from its first child to preserve the
// current geometry as the starting point of coarse refinement (spec
// §4.3 "Coarsen operation"). Returns l unchanged if already at the top.
func CoarsenUp(active *Layout) *Layout {
	if active.ParentLayout == nil {
		return active
	}
	parent := active.ParentLayout
	for _, n := range parent.Nodes {
		n.X, n.Y = n.Child1.X, n.Child1.Y
	}
	return parent
}

// RefineDown switches the active layout pointer from l to its child,
// placing each child at its parent's position, offset laterally if it
// has a sibling so the pair's centre of mass matches the parent's
// position (spec §4.3 "Refine operation"). Returns l unchanged if
// already at level 0.
func RefineDown(active *Layout) *Layout {
	if active.ChildLayout == nil {
		return active
	}
	child := active.ChildLayout
	for _, n := range child.Nodes {
		parent := n.Parent
		if parent.Child2 == nil {
			n.X, n.Y = parent.X, parent.Y
			continue
		}
		offset := (1 - n.Mass/parent.Mass) * parent.Radius
		if parent.Child1 == n {
			n.X = parent.X - offset
		} else {
			n.X = parent.X + offset
		}
		n.Y = parent.Y
	}
	return child
}

// PropagatePositionsToChildren copies positions from the active layout
// down through every finer level to level 0, then onto each level-0
// node's Paper (spec §4.5 "Propagate coordinates ... down to leaves").
// Unlike RefineDown this is a plain copy with no centre-of-mass offset:
// it is run after every force iteration purely so category centroids and
// external renderers can read a consistent position at level 0.
func PropagatePositionsToChildren(active *Layout) {
	for l := active; l.ChildLayout != nil; l = l.ChildLayout {
		child := l.ChildLayout
		for _, n := range l.Nodes {
			n.Child1.X, n.Child1.Y = n.X, n.Y
			if n.Child2 != nil {
				n.Child2.X, n.Child2.Y = n.X, n.Y
			}
		}
		if child.ChildLayout == nil {
			for _, n := range child.Nodes {
				if n.Paper != nil {
					n.Paper.X, n.Paper.Y = n.X, n.Y
				}
			}
		}
	}
	if active.ChildLayout == nil {
		for _, n := range active.Nodes {
			if n.Paper != nil {
				n.Paper.X, n.Paper.Y = n.X, n.Y
			}
		}
	}
}

// NumCoarserLayouts and NumFinerLayouts implement the corresponding
// MapEnv observation calls from spec §6.
func NumCoarserLayouts(active *Layout) int {
	n := 0
	for l := active.ParentLayout; l != nil; l = l.ParentLayout {
		n++
	}
	return n
}

func NumFinerLayouts(active *Layout) int {
	n := 0
	for l := active.ChildLayout; l != nil; l = l.ChildLayout {
		n++
	}
	return n
}
