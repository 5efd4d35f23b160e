package quadtree

import (
	"fmt"
	"math"
	"testing"
)

func TestNewNode(t *testing.T) {
	n := newNode(0, 0, 100, 100)
	if !n.isLeaf {
		t.Error("new node should be a leaf")
	}
	if n.body != -1 {
		t.Error("new node should have no body")
	}
	if n.mass != 0 {
		t.Error("new node should have zero mass")
	}
}

func TestInsertSingle(t *testing.T) {
	n := newNode(0, 0, 100, 100)
	n.insert(0, 50, 50, 2.0)

	if !n.isLeaf {
		t.Error("node with single body should remain a leaf")
	}
	if n.body != 0 {
		t.Errorf("expected body=0, got %d", n.body)
	}
	if n.mass != 2.0 {
		t.Errorf("expected mass=2.0, got %f", n.mass)
	}
	if n.centerX != 50 || n.centerY != 50 {
		t.Errorf("expected center at (50,50), got (%f,%f)", n.centerX, n.centerY)
	}
}

func TestInsertMultipleSplits(t *testing.T) {
	n := newNode(0, 0, 100, 100)
	n.insert(0, 25, 25, 1.0)
	n.insert(1, 75, 75, 1.0)

	if n.isLeaf {
		t.Error("node with two bodies should not be a leaf")
	}
	if n.nw == nil || n.se == nil {
		t.Error("expected quadrants to be created")
	}
	if math.Abs(n.centerX-50) > 1e-9 || math.Abs(n.centerY-50) > 1e-9 {
		t.Errorf("expected center at (50,50), got (%f,%f)", n.centerX, n.centerY)
	}
	if n.mass != 2.0 {
		t.Errorf("expected total mass=2.0, got %f", n.mass)
	}
}

func TestInsertWeightedCenterOfMass(t *testing.T) {
	n := newNode(0, 0, 100, 100)
	n.insert(0, 0, 50, 3.0)
	n.insert(1, 100, 50, 1.0)

	// Heavier body should pull the center of mass toward it.
	wantX := (0*3.0 + 100*1.0) / 4.0
	if math.Abs(n.centerX-wantX) > 1e-9 {
		t.Errorf("expected weighted center x=%f, got %f", wantX, n.centerX)
	}
}

func TestBuildEmpty(t *testing.T) {
	if Build(nil) != nil {
		t.Error("expected nil tree for empty input")
	}
}

func TestBuildSquaresBounds(t *testing.T) {
	bodies := []Body{{X: 10, Y: 10, Mass: 1}, {X: 90, Y: 10, Mass: 1}, {X: 10, Y: 90, Mass: 1}, {X: 90, Y: 90, Mass: 1}}
	tree := Build(bodies)
	if tree == nil {
		t.Fatal("expected tree")
	}
	if tree.width != tree.height {
		t.Errorf("expected square bounds, got width=%f height=%f", tree.width, tree.height)
	}
	if tree.mass != 4.0 {
		t.Errorf("expected total mass=4.0, got %f", tree.mass)
	}
}

func TestForceOnSelfIsZero(t *testing.T) {
	tree := Build([]Body{{X: 50, Y: 50, Mass: 1}})
	fx, fy := tree.Force(0, 50, 50, 1.0, 1.0, nil)
	if fx != 0 || fy != 0 {
		t.Errorf("force on self should be zero, got (%f,%f)", fx, fy)
	}
}

func TestForceRepulsiveAndOpposite(t *testing.T) {
	bodies := []Body{{X: 40, Y: 50, Mass: 1}, {X: 60, Y: 50, Mass: 1}}
	fx, fy := Forces(bodies, 1.0, 100.0, nil)

	if fx[0] >= 0 {
		t.Errorf("expected body 0 pushed left, got fx=%f", fx[0])
	}
	if fx[1] <= 0 {
		t.Errorf("expected body 1 pushed right, got fx=%f", fx[1])
	}
	if math.Abs(fy[0]) > 1e-9 || math.Abs(fy[1]) > 1e-9 {
		t.Errorf("expected no vertical force, got fy0=%f fy1=%f", fy[0], fy[1])
	}
	if math.Abs(fx[0]+fx[1]) > 1e-9 {
		t.Errorf("forces should be equal and opposite, got %f and %f", fx[0], fx[1])
	}
}

func TestThetaZeroIsExact(t *testing.T) {
	bodies := []Body{{X: 0, Y: 0, Mass: 1}, {X: 100, Y: 0, Mass: 1}, {X: 0, Y: 100, Mass: 1}, {X: 100, Y: 100, Mass: 1}}

	exactX, exactY := Forces(bodies, 0.0, 100.0, nil)
	approxX, approxY := Forces(bodies, 1.0, 100.0, nil)

	for i := range bodies {
		if (exactX[i] > 0) != (approxX[i] > 0) && math.Abs(exactX[i]) > 1e-9 {
			t.Errorf("body %d: force direction differs between theta=0 and theta=1", i)
		}
		_ = exactY
		_ = approxY
	}
}

func TestCloseRepulsionAddsShortRangePush(t *testing.T) {
	cr := &CloseRepulsion{Enabled: true, A: 1e8, B: 1e16, C: 1.1, D: 0.6}
	bodies := []Body{{X: 0, Y: 0, Mass: 1}, {X: 0.1, Y: 0, Mass: 1}}

	withCR, _ := Forces(bodies, 1.0, 1.0, cr)
	withoutCR, _ := Forces(bodies, 1.0, 1.0, nil)

	if math.Abs(withCR[0]) <= math.Abs(withoutCR[0]) {
		t.Errorf("expected close repulsion to increase force magnitude at short range, with=%f without=%f", withCR[0], withoutCR[0])
	}
}

func TestCloseRepulsionDisabledBeyondCutoff(t *testing.T) {
	cr := &CloseRepulsion{Enabled: true, A: 1e8, B: 1e16, C: 1.1, D: 0.6}
	if cr.force(1.0) != 0 {
		t.Errorf("expected zero close-repulsion force beyond D, got %f", cr.force(1.0))
	}
}

func TestForcesOnGrid(t *testing.T) {
	n := 100
	bodies := make([]Body, n)
	grid := 10
	for i := 0; i < n; i++ {
		bodies[i] = Body{X: float64(i%grid) * 10, Y: float64(i/grid) * 10, Mass: 1}
	}

	fx, fy := Forces(bodies, 0.8, 100.0, nil)
	nonZero := 0
	for i := 0; i < n; i++ {
		if math.Abs(fx[i]) > 1e-9 || math.Abs(fy[i]) > 1e-9 {
			nonZero++
		}
	}
	if nonZero < n/2 {
		t.Errorf("expected at least %d bodies with non-zero force, got %d", n/2, nonZero)
	}
}

func BenchmarkForces(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	for _, n := range sizes {
		bodies := make([]Body, n)
		for i := 0; i < n; i++ {
			bodies[i] = Body{X: float64(i%100) * 10, Y: float64(i/100) * 10, Mass: 1}
		}
		b.Run(fmt.Sprintf("N_%d", n), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Forces(bodies, 0.8, 100.0, nil)
			}
		})
	}
}
