package layout

import "github.com/matzehuels/astview/pkg/display"

// Tidy is a tidy-tree engine (Reingold-Tilford with Buchheim et al.'s
// linear-time improvements). Siblings are one unit apart and cousins two;
// the result is scaled so the tree exactly spans the box.
type Tidy struct{}

// Name returns "tidy".
func (Tidy) Name() string { return EngineTidy }

// tnode carries the bookkeeping of the Buchheim algorithm.
type tnode struct {
	parent   *tnode
	children []*tnode
	level    int
	i        int // index among siblings

	a *tnode // ancestor
	A *tnode // default ancestor
	t *tnode // thread

	z, m, c, s float64 // prelim, mod, change, shift
	x          float64
}

// Layout positions root within box.
func (Tidy) Layout(root *display.Node, box Box) (Hierarchy, error) {
	_, h := flatten(root)
	if len(h.Points) == 0 {
		return h, nil
	}

	virtual := &tnode{}
	var order []*tnode
	tree := buildTidy(root, virtual, 0, 0, &order)
	virtual.children = []*tnode{tree}

	firstWalks(tree)
	virtual.m = -tree.z
	for _, v := range order {
		v.x = v.z + v.parent.m
		v.m += v.parent.m
	}

	left, right, bottom := tree, tree, tree
	for _, v := range order {
		if v.x < left.x {
			left = v
		}
		if v.x > right.x {
			right = v
		}
		if v.level > bottom.level {
			bottom = v
		}
	}

	s := 1.0
	if left != right {
		s = separation(left, right) / 2
	}
	tx := s - left.x
	kx := box.Breadth / (right.x + s + tx)
	ky := box.Depth / float64(max(bottom.level, 1))

	for i, v := range order {
		h.Points[i].Perpendicular = (v.x + tx) * kx
		h.Points[i].Depth = float64(v.level) * ky
	}
	return h, nil
}

func buildTidy(n *display.Node, parent *tnode, level, i int, order *[]*tnode) *tnode {
	v := &tnode{parent: parent, level: level, i: i}
	v.a = v
	*order = append(*order, v)
	for ci, c := range n.Children {
		v.children = append(v.children, buildTidy(c, v, level+1, ci, order))
	}
	return v
}

// firstWalks runs firstWalk in post-order, siblings left to right.
func firstWalks(v *tnode) {
	for _, c := range v.children {
		firstWalks(c)
	}
	firstWalk(v)
}

func separation(a, b *tnode) float64 {
	if a.parent == b.parent {
		return 1
	}
	return 2
}

func firstWalk(v *tnode) {
	siblings := v.parent.children
	var w *tnode
	if v.i > 0 {
		w = siblings[v.i-1]
	}
	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].z + v.children[len(v.children)-1].z) / 2
		if w != nil {
			v.z = w.z + separation(v, w)
			v.m = v.z - midpoint
		} else {
			v.z = midpoint
		}
	} else if w != nil {
		v.z = w.z + separation(v, w)
	}
	ancestor := v.parent.A
	if ancestor == nil {
		ancestor = siblings[0]
	}
	v.parent.A = apportion(v, w, ancestor)
}

func apportion(v, w, ancestor *tnode) *tnode {
	if w == nil {
		return ancestor
	}
	vip, vop, vim, vom := v, v, w, v.parent.children[0]
	sip, sop, sim, som := vip.m, vop.m, vim.m, vom.m
	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.a = v
		shift := vim.z + sim - vip.z - sip + separation(vim, vip)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.m
		sip += vip.m
		som += vom.m
		sop += vop.m
	}
	if vim != nil && nextRight(vop) == nil {
		vop.t = vim
		vop.m += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.t = vip
		vom.m += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *tnode) *tnode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.t
}

func nextRight(v *tnode) *tnode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.t
}

func nextAncestor(vim, v, ancestor *tnode) *tnode {
	if vim.a.parent == v.parent {
		return vim.a
	}
	return ancestor
}

func moveSubtree(wm, wp *tnode, shift float64) {
	change := shift / float64(wp.i-wm.i)
	wp.c -= change
	wp.s += shift
	wm.c += change
	wp.z += shift
	wp.m += shift
}

func executeShifts(v *tnode) {
	var shift, change float64
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.z += shift
		w.m += shift
		change += w.c
		shift += w.s + change
	}
}
