// Package condition implements GraphConditioner (spec §4.6): given the
// full paper arena and a date range, it selects the included papers,
// colours connected components, picks the dominant component, stitches
// disconnected papers of the same category back in via shared keywords
// (falling back to the heaviest connected paper in their category),
// drops whatever is still unreachable, and builds the resulting working
// set's layout hierarchy.
package condition

import (
	"math"
	"math/rand"
	"sort"

	"github.com/onnwee/paperscape-layout/internal/errs"
	"github.com/onnwee/paperscape-layout/internal/layout"
	"github.com/onnwee/paperscape-layout/internal/model"
	"github.com/onnwee/paperscape-layout/internal/tred"
)

// Options configures one ConditionGraph pass, mirroring the force_params_t
// / set_papers knobs spec §6 exposes for date-range selection.
type Options struct {
	IDStart, IDEnd   int64
	UseRefFreq       bool
	AgeWeaken        bool
	ComputeTred      bool
	MaxCoarsenLevels int // 0 defaults to 10, per spec §4.6 step 11
}

// Result is the conditioned working set: a connected subgraph of papers
// plus the coarsest layout built from it (spec §4.6 step 12: the active
// layout after SelectDateRange is the top of the hierarchy, not level 0).
type Result struct {
	Papers  []*model.Paper
	Level0  *layout.Layout
	Active  *layout.Layout // coarsest level; caller must RefineDown to reach Level0
	Dropped []*model.Paper // included papers that could not be reconnected
}

// ConditionGraph runs the full pass described above. all must be sorted
// ascending by ID with Index already set to each paper's position in the
// slice (spec §3's ownership rule: Index is assigned once by the loader).
// Returns an *errs.Error with Kind == errs.InvalidRange if the id range
// selects no papers.
func ConditionGraph(all []*model.Paper, keywords []*model.Keyword, opts Options, rng *rand.Rand) (*Result, error) {
	iStart, iEnd := idRange(all, opts.IDStart, opts.IDEnd)
	if iStart > iEnd {
		return nil, errs.New(errs.InvalidRange, "no papers fall within the requested id range")
	}
	inRange := all[iStart : iEnd+1]

	for _, p := range inRange {
		p.Included = true
		p.Connected = false
		p.Colour = 0
		p.ResetFakeLinks()
	}
	assignAge(inRange, opts.IDStart, opts.IDEnd)

	computeIncludedCiteCounts(inRange)
	colourComponents(inRange)

	if opts.ComputeTred {
		tred.Compute(inRange)
	}

	recomputeMassAndSeed(inRange, rng)

	biggest := biggestColour(inRange)
	for _, p := range inRange {
		p.Connected = p.Colour == biggest
	}

	stitchByCategory(inRange, keywords)

	working, dropped := splitConnected(inRange)

	level0 := layout.BuildLevelZero(working, opts.UseRefFreq, opts.AgeWeaken)
	maxLevels := opts.MaxCoarsenLevels
	if maxLevels <= 0 {
		maxLevels = 10
	}
	layout.BuildHierarchy(level0, maxLevels)

	top := level0
	for top.ParentLayout != nil {
		top = top.ParentLayout
	}
	seedUniform(top, rng, 0, 100)

	return &Result{Papers: working, Level0: level0, Active: top, Dropped: dropped}, nil
}

// idRange finds the first and last index in all (sorted ascending by ID)
// whose ID falls within [idStart, idEnd]. Returns iStart > iEnd if the
// range is empty.
func idRange(all []*model.Paper, idStart, idEnd int64) (int, int) {
	start := sort.Search(len(all), func(i int) bool { return all[i].ID >= idStart })
	end := sort.Search(len(all), func(i int) bool { return all[i].ID > idEnd }) - 1
	return start, end
}

// assignAge sets each included paper's normalized id position within
// [idStart, idEnd] (spec §3's Age definition), used by BuildLevelZero's
// age-weakening attenuation. A degenerate (single-id) range gets Age 0
// for every paper.
func assignAge(inRange []*model.Paper, idStart, idEnd int64) {
	span := float64(idEnd - idStart)
	for _, p := range inRange {
		if span <= 0 {
			p.Age = 0
			continue
		}
		p.Age = float64(p.ID-idStart) / span
	}
}

// computeIncludedCiteCounts sets each paper's NumIncludedCites to the
// number of its citers that are currently included, which drives the
// mass formula below.
func computeIncludedCiteCounts(inRange []*model.Paper) {
	for _, p := range inRange {
		n := 0
		for _, c := range p.Cites {
			if c.Included {
				n++
			}
		}
		p.NumIncludedCites = n
	}
}

// colourComponents assigns each included paper the minimum Index found
// within its connected component (via Refs and Cites edges restricted to
// included papers), matching paper_propagate_connectivity's traversal.
func colourComponents(inRange []*model.Paper) {
	visited := make(map[*model.Paper]bool, len(inRange))
	for _, root := range inRange {
		if !root.Included || visited[root] {
			continue
		}
		stack := []*model.Paper{root}
		var component []*model.Paper
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			component = append(component, cur)
			for _, r := range cur.Refs {
				if r.Included && !visited[r] {
					stack = append(stack, r)
				}
			}
			for _, c := range cur.Cites {
				if c.Included && !visited[c] {
					stack = append(stack, c)
				}
			}
		}
		minIndex := component[0].Index
		for _, p := range component {
			if p.Index < minIndex {
				minIndex = p.Index
			}
		}
		for _, p := range component {
			p.Colour = minIndex
		}
	}
}

// biggestColour returns the colour with the most included papers,
// reproducing the original's size-2 threshold quirk: a colour only
// displaces the default (colour 0) if it has strictly more than 2
// members, so components of size 1 or 2 never become "the" component.
func biggestColour(inRange []*model.Paper) int {
	counts := make(map[int]int)
	for _, p := range inRange {
		if p.Included {
			counts[p.Colour]++
		}
	}
	best, bestCount := 0, 2
	for colour, count := range counts {
		if count > bestCount {
			best, bestCount = colour, count
		}
	}
	return best
}

// recomputeMassAndSeed applies the mass formula (spec §4.6 step 6) and
// seeds each included paper's starting position by averaging its already
// -seeded included references (processing inRange in ascending index
// order guarantees refs are seeded first, since they predate p), with a
// small jitter so single-reference papers don't stack exactly on top of
// their reference. Papers with no included references get a uniform
// random position in [-50, 50]^2.
func recomputeMassAndSeed(inRange []*model.Paper, rng *rand.Rand) {
	for _, p := range inRange {
		if !p.Included {
			continue
		}
		p.Mass = 0.2 + 0.2*float64(p.NumIncludedCites)
		p.R = math.Sqrt(p.Mass / math.Pi)

		var sumX, sumY float64
		var n int
		for _, r := range p.Refs {
			if r.Included {
				sumX += r.X
				sumY += r.Y
				n++
			}
		}
		if n > 0 {
			p.X = sumX/float64(n) + model.SeedJitter(rng)
			p.Y = sumY/float64(n) + model.SeedJitter(rng)
		} else {
			p.X = -50 + 100*rng.Float64()
			p.Y = -50 + 100*rng.Float64()
		}
	}
}

// stitchByCategory runs the reconnection pass once per category: for
// each category it recomputes every keyword's best (heaviest, connected)
// paper scoped to that category, then immediately tries to pull every
// still-disconnected paper of that same category back in via a shared
// keyword or, failing that, the heaviest connected paper in the
// category. Clearing keyword data between categories (rather than once
// up front) is what keeps a keyword's pointer scoped to a single
// category at a time.
func stitchByCategory(inRange []*model.Paper, keywords []*model.Keyword) {
	for cat := model.CatHepTh; cat <= model.CatOther; cat++ {
		for _, kw := range keywords {
			kw.Paper = nil
		}

		var heaviestInCat *model.Paper
		for _, p := range inRange {
			if !p.Included || !p.Connected || p.MainCat != cat {
				continue
			}
			for _, kw := range p.Keywords {
				if kw.Paper == nil || p.Mass > kw.Paper.Mass {
					kw.Paper = p
				}
			}
			if heaviestInCat == nil || p.Mass > heaviestInCat.Mass {
				heaviestInCat = p
			}
		}

		for _, p := range inRange {
			if !p.Included || p.Connected || p.MainCat != cat {
				continue
			}
			makeFakeLinks(p, heaviestInCat)
		}
	}
}

// makeFakeLinks attempts to reconnect p via each of its keywords'
// currently-computed best paper, falling back to fallback (the heaviest
// connected paper in p's category) if no keyword produced a link. On
// success p.Connected is set true and propagated across p's entire
// reference/citation component.
func makeFakeLinks(p *model.Paper, fallback *model.Paper) {
	found := false
	for _, kw := range p.Keywords {
		if kw.Paper != nil && kw.Paper != p {
			p.FakeLinks = append(p.FakeLinks, kw.Paper)
			found = true
		}
	}
	if !found && fallback != nil && fallback != p {
		p.FakeLinks = append(p.FakeLinks, fallback)
		found = true
	}
	if found {
		propagateConnectivity(p)
	}
}

// propagateConnectivity marks p connected and recurses across p.Refs and
// p.Cites, exactly mirroring original_source/nbody/map.c's
// paper_propagate_connectivity: once a single paper in a disconnected
// component is stitched back in, its whole component comes with it,
// regardless of Included.
func propagateConnectivity(p *model.Paper) {
	if p.Connected {
		return
	}
	p.Connected = true
	for _, r := range p.Refs {
		propagateConnectivity(r)
	}
	for _, c := range p.Cites {
		propagateConnectivity(c)
	}
}

// splitConnected partitions the included papers into the final working
// set (connected, ready for layout) and those that must be dropped
// because no category-level stitch could reach them (spec §4.6 step 10).
func splitConnected(inRange []*model.Paper) (working, dropped []*model.Paper) {
	for _, p := range inRange {
		if !p.Included {
			continue
		}
		if p.Connected {
			working = append(working, p)
		} else {
			dropped = append(dropped, p)
		}
	}
	return working, dropped
}

// seedUniform scatters every node of l uniformly within [lo, hi]^2,
// matching the original's coarsest-level seeding after the hierarchy is
// built (spec §4.6 step 12).
func seedUniform(l *layout.Layout, rng *rand.Rand, lo, hi float64) {
	for _, n := range l.Nodes {
		n.X = lo + (hi-lo)*rng.Float64()
		n.Y = lo + (hi-lo)*rng.Float64()
	}
}
