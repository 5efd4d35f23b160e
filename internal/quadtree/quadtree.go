// Package quadtree implements the Barnes-Hut spatial decomposition used by
// the force engine's anti-gravity pass (spec §4.1). It is a direct
// generalization of the teacher's barnesHutNode (uniform unit-mass
// particles) to arbitrary per-body mass, plus an optional short-range
// close-repulsion kernel evaluated alongside the standard inverse-square
// term wherever two bodies fall in the same leaf or approximated node.
package quadtree

import "math"

// Body is one point mass the tree is built over.
type Body struct {
	X, Y, Mass float64
}

// CloseRepulsion holds the short-range repulsion kernel parameters from
// spec §6 (force_params_t): F = A/r^C - B/r^(2C), applied in addition to
// the inverse-square anti-gravity term whenever two bodies are within D
// of each other.
type CloseRepulsion struct {
	Enabled bool
	A, B, C, D float64
}

// force returns the scalar magnitude of the close-repulsion kernel at
// separation dist, or 0 if dist >= D or the kernel is disabled.
func (cr *CloseRepulsion) force(dist float64) float64 {
	if cr == nil || !cr.Enabled || dist >= cr.D || dist <= 0 {
		return 0
	}
	return cr.A/math.Pow(dist, cr.C) - cr.B/math.Pow(dist, 2*cr.C)
}

// Node is one quadrant of the tree: a leaf holding at most one body, or
// an internal node summarizing up to four children's aggregate mass and
// center of mass.
type Node struct {
	x, y, width, height float64

	centerX, centerY float64
	mass             float64

	body   int // index into the Body slice Build was called with, or -1
	isLeaf bool

	nw, ne, sw, se *Node
}

func newNode(x, y, width, height float64) *Node {
	return &Node{x: x, y: y, width: width, height: height, isLeaf: true, body: -1}
}

// insert adds body i at (px, py) with mass m, subdividing this node into
// four quadrants the first time it receives a second body.
func (n *Node) insert(i int, px, py, m float64) {
	if n.body == -1 && n.isLeaf {
		n.body = i
		n.centerX, n.centerY, n.mass = px, py, m
		return
	}

	if n.isLeaf {
		n.isLeaf = false
		oldBody, oldX, oldY, oldMass := n.body, n.centerX, n.centerY, n.mass
		n.body = -1

		halfW, halfH := n.width/2, n.height/2
		n.nw = newNode(n.x, n.y, halfW, halfH)
		n.ne = newNode(n.x+halfW, n.y, halfW, halfH)
		n.sw = newNode(n.x, n.y+halfH, halfW, halfH)
		n.se = newNode(n.x+halfW, n.y+halfH, halfW, halfH)

		n.insertIntoQuadrant(oldBody, oldX, oldY, oldMass)
	}

	total := n.mass + m
	n.centerX = (n.centerX*n.mass + px*m) / total
	n.centerY = (n.centerY*n.mass + py*m) / total
	n.mass = total

	n.insertIntoQuadrant(i, px, py, m)
}

func (n *Node) insertIntoQuadrant(i int, px, py, m float64) {
	midX := n.x + n.width/2
	midY := n.y + n.height/2
	if px < midX {
		if py < midY {
			n.nw.insert(i, px, py, m)
		} else {
			n.sw.insert(i, px, py, m)
		}
	} else {
		if py < midY {
			n.ne.insert(i, px, py, m)
		} else {
			n.se.insert(i, px, py, m)
		}
	}
}

// Build constructs a quadtree over bodies, squaring the bounding box (plus
// 10% padding) exactly as the teacher's buildBarnesHutTree does. Returns
// nil for an empty body set.
func Build(bodies []Body) *Node {
	if len(bodies) == 0 {
		return nil
	}

	minX, maxX := bodies[0].X, bodies[0].X
	minY, maxY := bodies[0].Y, bodies[0].Y
	for _, b := range bodies[1:] {
		minX = math.Min(minX, b.X)
		maxX = math.Max(maxX, b.X)
		minY = math.Min(minY, b.Y)
		maxY = math.Max(maxY, b.Y)
	}

	padding := math.Max(maxX-minX, maxY-minY) * 0.1
	minX -= padding
	maxX += padding
	minY -= padding
	maxY += padding

	width, height := maxX-minX, maxY-minY
	if width > height {
		diff := (width - height) / 2
		minY -= diff
		height = width
	} else if height > width {
		diff := (height - width) / 2
		minX -= diff
		width = height
	}
	if width == 0 {
		width, height = 1, 1
	}

	root := newNode(minX, minY, width, height)
	for i, b := range bodies {
		root.insert(i, b.X, b.Y, b.Mass)
	}
	return root
}

// Force computes the anti-gravity (plus optional close-repulsion) force
// on body i at (px, py), approximating any node whose width/distance
// ratio is below theta as a single mass at its center of mass. theta == 0
// disables the approximation entirely (exact N² evaluation), matching
// spec §9's Barnes-Hut guidance.
func (n *Node) Force(i int, px, py, theta, antiGravityStrength float64, cr *CloseRepulsion) (fx, fy float64) {
	if n == nil || n.mass == 0 {
		return 0, 0
	}
	if n.isLeaf && n.body == i {
		return 0, 0
	}

	dx := n.centerX - px
	dy := n.centerY - py
	dist := math.Sqrt(dx*dx + dy*dy)

	if n.isLeaf || n.width/dist < theta {
		if dist < 1e-6 {
			return 0, 0
		}
		mag := antiGravityStrength*n.mass/(dist*dist) + cr.force(dist)
		return -dx / dist * mag, -dy / dist * mag
	}

	var tfx, tfy float64
	for _, child := range [4]*Node{n.nw, n.ne, n.sw, n.se} {
		if child == nil {
			continue
		}
		cfx, cfy := child.Force(i, px, py, theta, antiGravityStrength, cr)
		tfx += cfx
		tfy += cfy
	}
	return tfx, tfy
}

// Forces computes the anti-gravity force on every body, building one
// shared tree and querying it once per body. It is the bulk entry point
// the force engine calls once per iteration.
func Forces(bodies []Body, theta, antiGravityStrength float64, cr *CloseRepulsion) (fx, fy []float64) {
	n := len(bodies)
	fx, fy = make([]float64, n), make([]float64, n)

	root := Build(bodies)
	if root == nil {
		return fx, fy
	}

	for i, b := range bodies {
		fx[i], fy[i] = root.Force(i, b.X, b.Y, theta, antiGravityStrength, cr)
	}
	return fx, fy
}
