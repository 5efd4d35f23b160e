// Package tred computes the transitive reduction of a paper's reference
// DAG (spec §4.2), run once per GraphConditioner pass before layout
// construction so spring forces only act along "direct" citation edges.
package tred

import "github.com/onnwee/paperscape-layout/internal/model"

// Compute reduces every paper's Refs in place: RefsTredComputed[j] is set
// to 1 for references that survive the reduction and 0 for ones made
// redundant by a longer path through an already-kept reference. papers
// must be ordered ascending by Index, and Refs must already be ordered
// ascending by the referenced paper's Index (oldest first) — the
// youngest-first scan below relies on that ordering to visit the most
// recent reference first, matching the original algorithm's preference
// for keeping the youngest direct edge.
//
// References that are not in the past relative to p (Index >= p.Index,
// i.e. forward/self references that can slip into noisy citation data)
// are always kept unconditionally and never considered for reduction.
func Compute(papers []*model.Paper) {
	for _, p := range papers {
		p.TredVisitIndex = 0
		if len(p.RefsTredComputed) != len(p.Refs) {
			p.RefsTredComputed = make([]int, len(p.Refs))
		}
		for i := range p.RefsTredComputed {
			p.RefsTredComputed[i] = 0
		}
	}

	for _, p := range papers {
		for j := len(p.Refs) - 1; j >= 0; j-- {
			ref := p.Refs[j]

			if ref.Index >= p.Index {
				p.RefsTredComputed[j] = 1
				continue
			}

			if ref.TredVisitIndex == p.Index {
				// Already reachable via a previously-kept edge during this
				// paper's pass: this direct reference is redundant.
				continue
			}

			p.RefsTredComputed[j] = 1
			markReachable(p.Index, ref)
		}
	}
}

// markReachable performs a DFS from ref over already-kept, strictly-past
// edges, stamping each visited paper's TredVisitIndex with topIndex so
// Compute's scan of the top paper can detect redundant direct references.
func markReachable(topIndex int, p *model.Paper) {
	if p.TredVisitIndex == topIndex {
		return
	}
	p.TredVisitIndex = topIndex

	for i, ref := range p.Refs {
		if p.RefsTredComputed[i] == 0 {
			continue
		}
		if ref.Index >= p.Index {
			continue
		}
		markReachable(topIndex, ref)
	}
}

// Kept returns the surviving references of p after Compute has run.
func Kept(p *model.Paper) []*model.Paper {
	var out []*model.Paper
	for i, ref := range p.Refs {
		if p.RefsTredComputed[i] != 0 {
			out = append(out, ref)
		}
	}
	return out
}
