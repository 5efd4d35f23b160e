package tred

import (
	"reflect"
	"testing"

	"github.com/onnwee/paperscape-layout/internal/model"
)

func TestComputeRemovesTransitiveEdge(t *testing.T) {
	// A <- B <- C, and C also cites A directly: C->A is redundant because
	// the path C->B->A already connects them.
	a := &model.Paper{ID: 1, Index: 0}
	b := &model.Paper{ID: 2, Index: 1, Refs: []*model.Paper{a}}
	c := &model.Paper{ID: 3, Index: 2, Refs: []*model.Paper{a, b}}

	Compute([]*model.Paper{a, b, c})

	if got := Kept(c); len(got) != 1 || got[0] != b {
		t.Errorf("expected C to keep only its reference to B, got %v", got)
	}
	if got := Kept(b); len(got) != 1 || got[0] != a {
		t.Errorf("expected B to keep its reference to A, got %v", got)
	}
}

func TestComputeKeepsIndependentEdges(t *testing.T) {
	// A and B are unrelated; C cites both directly with no path between
	// them, so both references must survive.
	a := &model.Paper{ID: 1, Index: 0}
	b := &model.Paper{ID: 2, Index: 1}
	c := &model.Paper{ID: 3, Index: 2, Refs: []*model.Paper{a, b}}

	Compute([]*model.Paper{a, b, c})

	got := Kept(c)
	if len(got) != 2 {
		t.Fatalf("expected both references kept, got %v", got)
	}
}

func TestComputeNeverRemovesForwardReferences(t *testing.T) {
	// B has a higher index than A but appears in A's Refs (noisy data: a
	// "future" reference). It must always be kept, never reduced away.
	a := &model.Paper{ID: 1, Index: 0}
	b := &model.Paper{ID: 2, Index: 1}
	a.Refs = []*model.Paper{b}

	Compute([]*model.Paper{a, b})

	if got := Kept(a); len(got) != 1 || got[0] != b {
		t.Errorf("expected forward reference to be kept unconditionally, got %v", got)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	a := &model.Paper{ID: 1, Index: 0}
	b := &model.Paper{ID: 2, Index: 1, Refs: []*model.Paper{a}}
	c := &model.Paper{ID: 3, Index: 2, Refs: []*model.Paper{a, b}}
	papers := []*model.Paper{a, b, c}

	Compute(papers)
	first := append([]int(nil), c.RefsTredComputed...)
	Compute(papers)
	second := c.RefsTredComputed

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected idempotent result, got %v then %v", first, second)
	}
}

func TestComputeOnSinglePaperNoRefs(t *testing.T) {
	a := &model.Paper{ID: 1, Index: 0}
	Compute([]*model.Paper{a})
	if got := Kept(a); len(got) != 0 {
		t.Errorf("expected no references, got %v", got)
	}
}
