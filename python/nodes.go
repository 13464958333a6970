// Package python contains the abstract representation of analyzed source
// code together with the worklist-driven traversal engine and the call
// signature binder used by detection rules.
//
// The tree is a closed set of node variants. A node's children are mutated
// only through the replace capability handed out by its child enumeration;
// this keeps every rule observing the same tree during a traversal pass.
package python

import (
	"fmt"
	"hash/fnv"

	"github.com/RootLUG/aura/taint"
)

// NodeKind tags the variant of a tree node. Rules register against kinds and
// the traversal engine dispatches on them.
type NodeKind int

const (
	KindNumber NodeKind = iota
	KindString
	KindDictionary
	KindVar
	KindAttribute
	KindCompare
	KindFunctionDef
	KindCall
	KindArguments
	KindImport
	KindBinOp
	KindPrint
)

func (k NodeKind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindDictionary:
		return "Dictionary"
	case KindVar:
		return "Var"
	case KindAttribute:
		return "Attribute"
	case KindCompare:
		return "Compare"
	case KindFunctionDef:
		return "FunctionDef"
	case KindCall:
		return "Call"
	case KindArguments:
		return "Arguments"
	case KindImport:
		return "Import"
	case KindBinOp:
		return "BinOp"
	case KindPrint:
		return "Print"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// ReplaceFunc overwrites exactly one child slot of a node. The engine binds
// one per enumerated child; rules must not cache it across passes.
type ReplaceFunc func(Node)

// ChildVisitor receives each direct child of a node together with the
// replace capability scoped to that child's slot.
type ChildVisitor func(child Node, replace ReplaceFunc)

// Node is the closed interface over all tree variants.
type Node interface {
	Kind() NodeKind
	// FullName resolves the symbolic identity of the node, e.g. the dotted
	// import path behind an attribute access. Empty string means unresolved.
	// Resolution is pure and looks at most one structural level deep.
	FullName() string
	// IsStatic reports whether the node is a constant, input-independent
	// structure (a literal or a compound of only static children).
	IsStatic() bool
	// Children enumerates direct children in a stable order.
	Children(visit ChildVisitor)
	// Info exposes the metadata shared by all variants.
	Info() *NodeInfo
}

// NodeInfo carries the metadata common to every variant. Variants embed it,
// inheriting the default behaviour (no children, not static, name resolved
// only through an explicit override).
type NodeInfo struct {
	// ResolvedName, when set, overrides structural full-name resolution.
	ResolvedName string
	// Line is the 1-based source line, 0 when unknown.
	Line int

	tags  map[string]struct{}
	class taint.Class
	hash  uint64
}

func (i *NodeInfo) Info() *NodeInfo { return i }

func (i *NodeInfo) FullName() string { return i.ResolvedName }

func (i *NodeInfo) IsStatic() bool { return false }

func (i *NodeInfo) Children(ChildVisitor) {}

func (i *NodeInfo) Taint() taint.Class { return i.class }

func (i *NodeInfo) SetTaint(c taint.Class) { i.class = c }

// AddTaint folds another classification into the node's current one.
func (i *NodeInfo) AddTaint(c taint.Class) {
	i.class = taint.Combine(i.class, c)
}

// Tag attaches a free-form marker to the node.
func (i *NodeInfo) Tag(name string) {
	if i.tags == nil {
		i.tags = make(map[string]struct{})
	}
	i.tags[name] = struct{}{}
}

// HasTag reports whether the marker is present.
func (i *NodeInfo) HasTag(name string) bool {
	_, ok := i.tags[name]
	return ok
}

// Hash returns the cached identity hash of a node, computing it on first
// use from the kind, resolved name and line.
func Hash(n Node) uint64 {
	info := n.Info()
	if info.hash == 0 {
		h := fnv.New64a()
		fmt.Fprintf(h, "%d\x00%s\x00%d", n.Kind(), n.FullName(), info.Line)
		info.hash = h.Sum64()
		if info.hash == 0 {
			info.hash = 1
		}
	}
	return info.hash
}

// Number is an integer literal.
type Number struct {
	NodeInfo
	Value int64
}

func (n *Number) Kind() NodeKind { return KindNumber }
func (n *Number) IsStatic() bool { return true }

// String is a string literal.
type String struct {
	NodeInfo
	Value string
}

func (s *String) Kind() NodeKind { return KindString }
func (s *String) IsStatic() bool { return true }

// Concat returns a new literal holding the concatenation, used by constant
// folding rewrites.
func (s *String) Concat(other *String) *String {
	return &String{Value: s.Value + other.Value}
}

// Repeat returns the literal repeated n times.
func (s *String) Repeat(n int) *String {
	if n <= 0 {
		return &String{}
	}
	out := make([]byte, 0, n*len(s.Value))
	for i := 0; i < n; i++ {
		out = append(out, s.Value...)
	}
	return &String{Value: string(out)}
}

// Dictionary is a key/value literal with parallel ordered slices.
type Dictionary struct {
	NodeInfo
	Keys   []Node
	Values []Node
}

func (d *Dictionary) Kind() NodeKind { return KindDictionary }

func (d *Dictionary) IsStatic() bool {
	for _, k := range d.Keys {
		if !k.IsStatic() {
			return false
		}
	}
	for _, v := range d.Values {
		if !v.IsStatic() {
			return false
		}
	}
	return true
}

func (d *Dictionary) Children(visit ChildVisitor) {
	for i := range d.Keys {
		i := i
		visit(d.Keys[i], func(n Node) { d.Keys[i] = n })
	}
	for i := range d.Values {
		i := i
		visit(d.Values[i], func(n Node) { d.Values[i] = n })
	}
}

// VarKind distinguishes how a variable binding was introduced.
const (
	VarAssign   = "assign"
	VarArgument = "argument"
)

// Var is a named binding with an optionally known bound value.
type Var struct {
	NodeInfo
	Name    string
	Value   Node
	VarType string
}

func (v *Var) Kind() NodeKind { return KindVar }

func (v *Var) FullName() string {
	if v.ResolvedName != "" {
		return v.ResolvedName
	}
	if v.Value != nil {
		return v.Value.FullName()
	}
	return ""
}

func (v *Var) Children(visit ChildVisitor) {
	if v.Value != nil {
		visit(v.Value, func(n Node) { v.Value = n })
	}
}

// Attribute access kinds.
const (
	AttrLoad  = "load"
	AttrStore = "store"
)

// Attribute is an attribute access on a source node.
type Attribute struct {
	NodeInfo
	Source Node
	Attr   string
	Action string
}

func (a *Attribute) Kind() NodeKind { return KindAttribute }

// FullName follows an Import source to produce the dotted path of the
// accessed symbol. Anything else stays unresolved; resolution never needs a
// second traversal pass.
func (a *Attribute) FullName() string {
	if a.ResolvedName != "" {
		return a.ResolvedName
	}
	if imp, ok := a.Source.(*Import); ok {
		return imp.Module + "." + a.Attr
	}
	return ""
}

func (a *Attribute) Children(visit ChildVisitor) {
	if a.Source != nil {
		visit(a.Source, func(n Node) { a.Source = n })
	}
}

// Compare is a chained comparison.
type Compare struct {
	NodeInfo
	Left        Node
	Ops         []string
	Comparators []Node
}

func (c *Compare) Kind() NodeKind { return KindCompare }

func (c *Compare) Children(visit ChildVisitor) {
	if c.Left != nil {
		visit(c.Left, func(n Node) { c.Left = n })
	}
	for i := range c.Comparators {
		i := i
		visit(c.Comparators[i], func(n Node) { c.Comparators[i] = n })
	}
}

// FunctionDef is a function definition.
type FunctionDef struct {
	NodeInfo
	Name          string
	Args          []Node
	Body          []Node
	DecoratorList []Node
	Returns       Node
}

func (f *FunctionDef) Kind() NodeKind { return KindFunctionDef }

func (f *FunctionDef) Children(visit ChildVisitor) {
	for i := range f.Args {
		i := i
		visit(f.Args[i], func(n Node) { f.Args[i] = n })
	}
	for i := range f.Body {
		i := i
		visit(f.Body[i], func(n Node) { f.Body[i] = n })
	}
	for i := range f.DecoratorList {
		i := i
		visit(f.DecoratorList[i], func(n Node) { f.DecoratorList[i] = n })
	}
	if f.Returns != nil {
		visit(f.Returns, func(n Node) { f.Returns = n })
	}
}

// Keyword is one explicit name=value argument at a call site.
type Keyword struct {
	Name  string
	Value Node
}

// Call is a captured call expression. Keywords holds the explicitly written
// keyword arguments in source order; KwDict, when set, is a Dictionary node
// standing in for the whole keyword collection (a **mapping expansion) and
// is materialized by the binder.
type Call struct {
	NodeInfo
	Func     Node
	Args     []Node
	Keywords []Keyword
	KwDict   *Dictionary
}

func (c *Call) Kind() NodeKind { return KindCall }

func (c *Call) FullName() string {
	if c.ResolvedName != "" {
		return c.ResolvedName
	}
	if c.Func != nil {
		return c.Func.FullName()
	}
	return ""
}

func (c *Call) Children(visit ChildVisitor) {
	for i := range c.Args {
		i := i
		visit(c.Args[i], func(n Node) { c.Args[i] = n })
	}
	for i := range c.Keywords {
		i := i
		visit(c.Keywords[i].Value, func(n Node) { c.Keywords[i].Value = n })
	}
	if c.KwDict != nil {
		visit(c.KwDict, func(n Node) {
			if d, ok := n.(*Dictionary); ok {
				c.KwDict = d
			}
		})
	}
	if c.Func != nil {
		visit(c.Func, func(n Node) { c.Func = n })
	}
}

// Arguments describes the formal parameters of a function definition.
// Defaults align right against Args, KwDefaults against KwOnlyArgs.
type Arguments struct {
	NodeInfo
	Args       []string
	VarArg     string
	KwOnlyArgs []string
	KwArg      string
	Defaults   []Node
	KwDefaults []Node
}

func (a *Arguments) Kind() NodeKind { return KindArguments }

func (a *Arguments) Children(visit ChildVisitor) {
	for i := range a.Defaults {
		i := i
		visit(a.Defaults[i], func(n Node) { a.Defaults[i] = n })
	}
	for i := range a.KwDefaults {
		i := i
		visit(a.KwDefaults[i], func(n Node) { a.KwDefaults[i] = n })
	}
}

// Import forms.
const (
	ImportPlain = "import"
	ImportFrom  = "from"
)

// Import records a module import under an alias.
type Import struct {
	NodeInfo
	Module string
	Alias  string
	Form   string
}

func (i *Import) Kind() NodeKind { return KindImport }

func (i *Import) FullName() string { return i.Module }

// BinOp is a binary operation.
type BinOp struct {
	NodeInfo
	Op    string
	Left  Node
	Right Node
}

func (b *BinOp) Kind() NodeKind { return KindBinOp }

func (b *BinOp) IsStatic() bool {
	return b.Left != nil && b.Right != nil && b.Left.IsStatic() && b.Right.IsStatic()
}

func (b *BinOp) Children(visit ChildVisitor) {
	if b.Left != nil {
		visit(b.Left, func(n Node) { b.Left = n })
	}
	if b.Right != nil {
		visit(b.Right, func(n Node) { b.Right = n })
	}
}

// Print is a print statement (legacy python 2 form).
type Print struct {
	NodeInfo
	Values []Node
	Dest   Node
}

func (p *Print) Kind() NodeKind { return KindPrint }

func (p *Print) Children(visit ChildVisitor) {
	for i := range p.Values {
		i := i
		visit(p.Values[i], func(n Node) { p.Values[i] = n })
	}
	if p.Dest != nil {
		visit(p.Dest, func(n Node) { p.Dest = n })
	}
}
