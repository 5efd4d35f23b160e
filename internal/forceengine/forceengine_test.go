package forceengine

import (
	"math"
	"testing"

	"github.com/onnwee/paperscape-layout/internal/layout"
	"github.com/onnwee/paperscape-layout/internal/model"
)

func paper(id int64, mass float64) *model.Paper {
	return &model.Paper{ID: id, Mass: mass, R: math.Sqrt(mass / math.Pi)}
}

func TestComputeAppliesNewtonThirdLawOnLinks(t *testing.T) {
	a := paper(1, 1)
	b := paper(2, 1)
	a.Refs = []*model.Paper{b}
	l := layout.BuildLevelZero([]*model.Paper{a, b}, false, false)
	l.Nodes[0].X, l.Nodes[0].Y = 0, 0
	l.Nodes[1].X, l.Nodes[1].Y = 100, 0

	params := DefaultParams()
	params.AntiGravityStrength = 0 // isolate the link force for this assertion
	Compute(l, params)

	if math.Abs(l.Nodes[0].FX+l.Nodes[1].FX) > 1e-9 {
		t.Errorf("expected equal and opposite link forces, got %f and %f", l.Nodes[0].FX, l.Nodes[1].FX)
	}
}

func TestComputeStretchedLinkPullsTogether(t *testing.T) {
	a := paper(1, 1)
	b := paper(2, 1)
	a.Refs = []*model.Paper{b}
	l := layout.BuildLevelZero([]*model.Paper{a, b}, false, false)
	l.Nodes[0].X, l.Nodes[0].Y = 0, 0
	l.Nodes[1].X, l.Nodes[1].Y = 1000, 0 // far beyond ideal length

	params := DefaultParams()
	params.AntiGravityStrength = 0
	Compute(l, params)

	if l.Nodes[0].FX <= 0 {
		t.Errorf("expected node a pulled toward b (positive fx), got %f", l.Nodes[0].FX)
	}
}

func TestComputeAntiGravityPushesApart(t *testing.T) {
	a := paper(1, 1)
	b := paper(2, 1)
	l := layout.BuildLevelZero([]*model.Paper{a, b}, false, false)
	l.Nodes[0].X, l.Nodes[0].Y = 0, 0
	l.Nodes[1].X, l.Nodes[1].Y = 1, 0

	params := DefaultParams()
	Compute(l, params)

	if l.Nodes[0].FX >= 0 {
		t.Errorf("expected anti-gravity to push node a away (negative fx), got %f", l.Nodes[0].FX)
	}
}

func TestComputeReturnsMaxLinkForceMag(t *testing.T) {
	a := paper(1, 1)
	b := paper(2, 1)
	a.Refs = []*model.Paper{b}
	l := layout.BuildLevelZero([]*model.Paper{a, b}, false, false)
	l.Nodes[0].X, l.Nodes[0].Y = 0, 0
	l.Nodes[1].X, l.Nodes[1].Y = 1000, 0

	params := DefaultParams()
	params.AntiGravityStrength = 0
	got := Compute(l, params)

	if got <= 0 {
		t.Errorf("expected positive max link force magnitude, got %f", got)
	}
}
