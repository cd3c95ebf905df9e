// Package scene provides the minimal scene-graph capability the avatar core
// needs: addressable transform nodes that can be reparented, queried for
// axis-aligned bounds, and written to by a single authoritative owner.
package scene

import (
	"cogentcore.org/core/math32"
)

// Node is an addressable transform entity. Pos, Rot and Scale are the local
// transform relative to the parent; Rot is Euler angles in radians with the
// Y component carrying yaw.
type Node struct {
	name     string
	parent   *Node
	children []*Node

	Pos   math32.Vector3
	Rot   math32.Vector3
	Scale math32.Vector3

	bounds    math32.Box3
	hasBounds bool
}

// NewNode creates a detached node with identity transform.
func NewNode(name string) *Node {
	return &Node{
		name:  name,
		Scale: math32.Vec3(1, 1, 1),
	}
}

func (n *Node) Name() string      { return n.name }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }

// SetPos sets the local position.
func (n *Node) SetPos(x, y, z float32) {
	n.Pos = math32.Vec3(x, y, z)
}

// SetUniformScale sets the same scale factor on all three axes.
func (n *Node) SetUniformScale(s float32) {
	n.Scale = math32.Vec3(s, s, s)
}

// SetBounds assigns the node's own local-space bounding box, typically the
// extents of the geometry bound to it.
func (n *Node) SetBounds(b math32.Box3) {
	n.bounds = b
	n.hasBounds = true
}

// AddChild reparents child under n. A child already attached elsewhere is
// detached from its previous parent first.
func (n *Node) AddChild(child *Node) {
	if child == nil || child == n {
		return
	}
	child.RemoveFromParent()
	child.parent = n
	n.children = append(n.children, child)
}

// RemoveFromParent detaches n from its parent, if any.
func (n *Node) RemoveFromParent() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// LocalMatrix composes the node's TRS into a transform matrix.
func (n *Node) LocalMatrix() math32.Matrix4 {
	var q math32.Quat
	q.SetFromEuler(n.Rot)
	var m math32.Matrix4
	m.SetTransform(n.Pos, q, n.Scale)
	return m
}

// WorldMatrix composes local matrices from the root down to n.
func (n *Node) WorldMatrix() math32.Matrix4 {
	local := n.LocalMatrix()
	if n.parent == nil {
		return local
	}
	parent := n.parent.WorldMatrix()
	var m math32.Matrix4
	m.MulMatrices(&parent, &local)
	return m
}

// WorldPos returns the node's origin in world space.
func (n *Node) WorldPos() math32.Vector3 {
	m := n.WorldMatrix()
	return math32.Vector3{}.MulMatrix4(&m)
}

// BoundingBox returns the axis-aligned bounding box of the node and all of
// its descendants, expressed in the node's own space. Child boxes are
// transformed by the child's local matrix before aggregation. The box is
// empty when no node in the subtree carries bounds.
func (n *Node) BoundingBox() math32.Box3 {
	box := math32.B3Empty()
	if n.hasBounds {
		box.ExpandByBox(n.bounds)
	}
	for _, c := range n.children {
		cb := c.BoundingBox()
		if cb.IsEmpty() {
			continue
		}
		cm := c.LocalMatrix()
		box.ExpandByBox(cb.MulMatrix4(&cm))
	}
	return box
}

// Dispose detaches the node and releases its subtree so exclusively-owned
// wrapper nodes do not outlive their instance.
func (n *Node) Dispose() {
	n.RemoveFromParent()
	for _, c := range n.children {
		c.parent = nil
		c.Dispose()
	}
	n.children = nil
	n.hasBounds = false
}
