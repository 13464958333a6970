package python

import (
	"iter"

	"github.com/hashicorp/go-hclog"

	"github.com/RootLUG/aura/finding"
)

// DefaultMaxDepth bounds traversal depth as a diagnostic guard against
// degenerate trees; it does not affect correctness on sane input.
const DefaultMaxDepth = 500

// Context wraps one node occurrence during a traversal pass. Contexts are
// produced only by the engine; rules receive them and never construct them.
type Context struct {
	// Node is whatever currently occupies this context's slot. ReplaceNode
	// keeps it in sync, so a rewrite participates in the same pass.
	Node   Node
	Parent *Context
	Depth  int

	replace ReplaceFunc
	visitor *Visitor
}

// Path returns the scan path the traversal was started for, used by rules to
// build stable finding signatures.
func (c *Context) Path() string {
	return c.visitor.Path
}

// ReplaceNode overwrites this context's slot with a new node and marks the
// pass as modified. The new node is what later rules and the engine's child
// descent observe.
func (c *Context) ReplaceNode(n Node) {
	if c.replace == nil {
		return
	}
	c.replace(n)
	c.Node = n
	c.visitor.modified = true
}

// VisitChild schedules a child node for traversal with a replace capability
// scoped to exactly that child's slot.
func (c *Context) VisitChild(node Node, replace ReplaceFunc) {
	if node == nil {
		return
	}
	if c.visitor.MaxDepth > 0 && c.Depth+1 > c.visitor.MaxDepth {
		c.visitor.logger.Debug("maximum traversal depth reached, pruning",
			"path", c.visitor.Path, "depth", c.Depth+1)
		return
	}
	c.visitor.queue = append(c.visitor.queue, &Context{
		Node:    node,
		Parent:  c,
		Depth:   c.Depth + 1,
		replace: replace,
		visitor: c.visitor,
	})
}

// NodeRule inspects node occurrences of the kinds it registered for. A rule
// may emit findings, rewrite the node through the context, or simply observe.
type NodeRule interface {
	ID() string
	Kinds() []NodeKind
	Visit(ctx *Context) iter.Seq[*finding.Finding]
}

// Visitor walks a tree top-down through a FIFO worklist, dispatching each
// dequeued context to the rules registered for its node kind and then
// descending into the node's children. Each Run owns its queue and modified
// flag; no state leaks between passes.
type Visitor struct {
	// Path identifies the analyzed source for diagnostics and signatures.
	Path string
	// MaxDepth prunes traversal beyond this depth; 0 means unlimited.
	MaxDepth int

	root     Node
	rules    map[NodeKind][]NodeRule
	queue    []*Context
	modified bool
	logger   hclog.Logger
}

// NewVisitor creates a traversal engine over the given tree.
func NewVisitor(path string, root Node, logger hclog.Logger) *Visitor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Visitor{
		Path:     path,
		MaxDepth: DefaultMaxDepth,
		root:     root,
		rules:    make(map[NodeKind][]NodeRule),
		logger:   logger,
	}
}

// Register adds rules to the dispatch table.
func (v *Visitor) Register(rules ...NodeRule) {
	for _, rule := range rules {
		for _, kind := range rule.Kinds() {
			v.rules[kind] = append(v.rules[kind], rule)
		}
	}
}

// Root returns the current tree root, reflecting any root-slot rewrite.
func (v *Visitor) Root() Node {
	return v.root
}

// Modified reports whether the last pass rewrote any node. Rules needing
// fixed-point behaviour re-run the pass until it stays false.
func (v *Visitor) Modified() bool {
	return v.modified
}

// Run performs one traversal pass, lazily yielding findings as rules produce
// them. No node occurrence is visited twice within a pass: a replaced slot is
// visited once, with whatever node occupies it at dequeue time.
func (v *Visitor) Run() iter.Seq[*finding.Finding] {
	return func(yield func(*finding.Finding) bool) {
		v.modified = false
		v.queue = v.queue[:0]

		root := &Context{
			Node:    v.root,
			visitor: v,
			replace: func(n Node) { v.root = n },
		}
		v.queue = append(v.queue, root)

		for len(v.queue) > 0 {
			ctx := v.queue[0]
			v.queue = v.queue[1:]

			for _, rule := range v.rules[ctx.Node.Kind()] {
				for f := range rule.Visit(ctx) {
					if !yield(f) {
						return
					}
				}
			}

			// Descend into whatever now occupies the slot.
			ctx.Node.Children(ctx.VisitChild)
		}
	}
}

// RunToFixedPoint re-runs passes until no rule rewrites the tree, collecting
// every finding produced along the way. maxPasses guards against rewrite
// cycles; 0 applies a generous default.
func (v *Visitor) RunToFixedPoint(maxPasses int) []*finding.Finding {
	if maxPasses <= 0 {
		maxPasses = 25
	}
	var findings []*finding.Finding
	for i := 0; i < maxPasses; i++ {
		for f := range v.Run() {
			findings = append(findings, f)
		}
		if !v.modified {
			break
		}
	}
	return findings
}
