package python

import (
	"errors"
	"fmt"
)

// ErrSignatureMismatch reports that a call site's arguments cannot be bound
// to a declared parameter shape. Callers treat it as "this call site is not
// a match" and move on; it never aborts a scan.
var ErrSignatureMismatch = errors.New("call arguments do not match signature")

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSignatureMismatch, fmt.Sprintf(format, args...))
}

// ParamKind distinguishes how a formal parameter can be filled.
type ParamKind int

const (
	// Positional parameters fill left to right from positional arguments
	// and may also be addressed by name.
	Positional ParamKind = iota
	// VarPositional captures positional arguments beyond the declared ones.
	VarPositional
	// KeywordOnly parameters can only be filled by name.
	KeywordOnly
	// VarKeyword captures keyword arguments with undeclared names.
	VarKeyword
)

// Parameter is one formal parameter of a declared shape.
type Parameter struct {
	Name       string
	Kind       ParamKind
	Default    Node
	HasDefault bool
}

// Signature is a declared formal parameter shape.
type Signature struct {
	Params []Parameter
}

// SignatureSpec is the convenience form used by detection rules: a run of
// positional names without defaults, keyword parameters with defaults, and
// optional var-arg capture names.
type SignatureSpec struct {
	Positional    []string
	Keywords      []KeywordParam
	CaptureArgs   string
	CaptureKwargs string
}

// KeywordParam is a named parameter with a default. A nil Default is a
// legitimate default value (the analyzed language's none), not an absent one.
type KeywordParam struct {
	Name    string
	Default Node
}

// NewSignature expands a spec into a full signature.
func NewSignature(spec SignatureSpec) *Signature {
	sig := &Signature{}
	for _, name := range spec.Positional {
		sig.Params = append(sig.Params, Parameter{Name: name, Kind: Positional})
	}
	for _, kw := range spec.Keywords {
		sig.Params = append(sig.Params, Parameter{
			Name:       kw.Name,
			Kind:       Positional,
			Default:    kw.Default,
			HasDefault: true,
		})
	}
	if spec.CaptureArgs != "" {
		sig.Params = append(sig.Params, Parameter{Name: spec.CaptureArgs, Kind: VarPositional})
	}
	if spec.CaptureKwargs != "" {
		sig.Params = append(sig.Params, Parameter{Name: spec.CaptureKwargs, Kind: VarKeyword})
	}
	return sig
}

// BoundArgs is the result of a successful bind. Args holds the values of the
// non-variadic parameters in declaration order (defaults substituted for
// omitted parameters); Extra and ExtraKwargs hold what the var-arg
// parameters captured.
type BoundArgs struct {
	Args        []Node
	Extra       []Node
	ExtraKwargs map[string]Node

	byName map[string]Node
}

// Get returns the value bound to the named parameter.
func (b *BoundArgs) Get(name string) (Node, bool) {
	v, ok := b.byName[name]
	return v, ok
}

// Bind resolves positional and keyword arguments against the signature using
// standard call-binding rules: positional arguments fill declared parameters
// left to right, named arguments fill parameters by name, defaults cover
// omissions, var-arg parameters capture the excess. There are no partial
// binds: any inconsistency yields ErrSignatureMismatch.
func (s *Signature) Bind(args []Node, kwargs map[string]Node) (*BoundArgs, error) {
	bound := &BoundArgs{byName: make(map[string]Node)}

	remaining := make(map[string]Node, len(kwargs))
	for k, v := range kwargs {
		remaining[k] = v
	}

	pos := 0
	var varPos, varKw *Parameter
	for idx := range s.Params {
		p := &s.Params[idx]
		switch p.Kind {
		case VarPositional:
			varPos = p
		case VarKeyword:
			varKw = p
		}
	}

	for idx := range s.Params {
		p := &s.Params[idx]
		switch p.Kind {
		case Positional:
			if pos < len(args) {
				if _, dup := remaining[p.Name]; dup {
					return nil, mismatch("parameter %q given both positionally and by name", p.Name)
				}
				bound.byName[p.Name] = args[pos]
				pos++
				continue
			}
			if v, ok := remaining[p.Name]; ok {
				bound.byName[p.Name] = v
				delete(remaining, p.Name)
				continue
			}
			if !p.HasDefault {
				return nil, mismatch("missing required parameter %q", p.Name)
			}
			bound.byName[p.Name] = p.Default
		case KeywordOnly:
			if v, ok := remaining[p.Name]; ok {
				bound.byName[p.Name] = v
				delete(remaining, p.Name)
				continue
			}
			if !p.HasDefault {
				return nil, mismatch("missing required keyword parameter %q", p.Name)
			}
			bound.byName[p.Name] = p.Default
		}
	}

	if pos < len(args) {
		if varPos == nil {
			return nil, mismatch("%d excess positional arguments", len(args)-pos)
		}
		bound.Extra = append(bound.Extra, args[pos:]...)
	}
	if len(remaining) > 0 {
		if varKw == nil {
			for name := range remaining {
				return nil, mismatch("unexpected keyword argument %q", name)
			}
		}
		bound.ExtraKwargs = remaining
	}

	for idx := range s.Params {
		p := &s.Params[idx]
		if p.Kind == Positional || p.Kind == KeywordOnly {
			bound.Args = append(bound.Args, bound.byName[p.Name])
		}
	}

	return bound, nil
}

// Bind resolves this call's captured arguments against the signature. When
// the keyword collection was captured as a Dictionary node it is materialized
// into an ordinary keyword mapping first; a non-string key makes the call
// unbindable.
func (c *Call) Bind(sig *Signature) (*BoundArgs, error) {
	kwargs := make(map[string]Node, len(c.Keywords))
	for _, kw := range c.Keywords {
		kwargs[kw.Name] = kw.Value
	}
	if c.KwDict != nil {
		if len(c.KwDict.Keys) != len(c.KwDict.Values) {
			return nil, mismatch("malformed keyword dictionary")
		}
		for i, key := range c.KwDict.Keys {
			name, ok := key.(*String)
			if !ok {
				return nil, mismatch("keyword dictionary key is not a string literal")
			}
			kwargs[name.Value] = c.KwDict.Values[i]
		}
	}
	return sig.Bind(c.Args, kwargs)
}

// ApplySignature is the one-step form used by rules: declare the shape and
// bind the call against it.
func (c *Call) ApplySignature(spec SignatureSpec) (*BoundArgs, error) {
	return c.Bind(NewSignature(spec))
}

// ToSignature converts a function definition's formal parameters into a
// bindable signature. Defaults align right against the parameter lists.
func (a *Arguments) ToSignature() *Signature {
	sig := &Signature{}

	offset := len(a.Args) - len(a.Defaults)
	for i, name := range a.Args {
		p := Parameter{Name: name, Kind: Positional}
		if i >= offset {
			p.Default = a.Defaults[i-offset]
			p.HasDefault = true
		}
		sig.Params = append(sig.Params, p)
	}

	if a.VarArg != "" {
		sig.Params = append(sig.Params, Parameter{Name: a.VarArg, Kind: VarPositional})
	}

	offset = len(a.KwOnlyArgs) - len(a.KwDefaults)
	for i, name := range a.KwOnlyArgs {
		p := Parameter{Name: name, Kind: KeywordOnly}
		if i >= offset {
			p.Default = a.KwDefaults[i-offset]
			p.HasDefault = true
		}
		sig.Params = append(sig.Params, p)
	}

	if a.KwArg != "" {
		sig.Params = append(sig.Params, Parameter{Name: a.KwArg, Kind: VarKeyword})
	}

	return sig
}
