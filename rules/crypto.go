package rules

import (
	"iter"
	"strconv"

	"github.com/RootLUG/aura"
	"github.com/RootLUG/aura/finding"
	"github.com/RootLUG/aura/python"
)

// keyGenTarget maps one known key-generation entry point to the formal
// shape its size argument is bound through.
type keyGenTarget struct {
	keyType string
	shape   python.SignatureSpec
}

// cryptographyShape matches the cryptography.hazmat generation functions:
// the size travels in key_size, backend defaults to an unset value.
var cryptographyShape = python.SignatureSpec{
	Positional: []string{"key_size"},
	Keywords:   []python.KeywordParam{{Name: "backend"}},
}

// pycryptoShape matches PyCrypto/PyCryptodome generate(): the size travels
// in bits.
var pycryptoShape = python.SignatureSpec{
	Positional: []string{"bits"},
	Keywords:   []python.KeywordParam{{Name: "randfunc"}, {Name: "domain"}},
}

var cryptoGenKeys = map[string]keyGenTarget{
	"cryptography.hazmat.primitives.asymmetric.dsa.generate_private_key": {keyType: "dsa", shape: cryptographyShape},
	"cryptography.hazmat.primitives.asymmetric.dsa.generate_parameters":  {keyType: "dsa", shape: cryptographyShape},
	"cryptography.hazmat.primitives.asymmetric.rsa.generate_private_key": {keyType: "rsa", shape: cryptographyShape},
	"cryptography.hazmat.primitives.asymmetric.rsa.generate_parameters":  {keyType: "rsa", shape: cryptographyShape},
	"Crypto.PublicKey.DSA.generate":                                      {keyType: "dsa", shape: pycryptoShape},
	"Crypto.PublicKey.RSA.generate":                                      {keyType: "rsa", shape: pycryptoShape},
	"Cryptodome.PublicKey.DSA.generate":                                  {keyType: "dsa", shape: pycryptoShape},
	"Cryptodome.PublicKey.RSA.generate":                                  {keyType: "rsa", shape: pycryptoShape},
}

// CryptoGenKey looks for calls matching known key-generation entry points,
// binds their arguments to extract the requested key size, and reports
// sizes below the configured per-family minimum with maximum severity.
type CryptoGenKey struct {
	id        string
	cfg       *aura.Config
	targets   map[string]keyGenTarget
	baseScore int
}

// NewCryptoGenKey builds the rule from the built-in catalogue, extended by
// the semantic catalogue when one is loaded.
func NewCryptoGenKey(cfg *aura.Config, semantic *aura.SemanticRules) python.NodeRule {
	if cfg == nil {
		cfg = aura.NewConfig()
	}

	targets := make(map[string]keyGenTarget, len(cryptoGenKeys))
	for name, target := range cryptoGenKeys {
		targets[name] = target
	}
	baseScore := 0
	if semantic != nil {
		if s, ok := semantic.Scores["crypto-gen-key"]; ok {
			baseScore = s
		}
		for _, sig := range semantic.CryptoKeyFunctions {
			shape := python.SignatureSpec{Positional: []string{sig.SizeParam}}
			for _, kw := range sig.Keywords {
				shape.Keywords = append(shape.Keywords, python.KeywordParam{Name: kw})
			}
			for _, fn := range sig.Functions {
				targets[fn] = keyGenTarget{keyType: sig.KeyType, shape: shape}
			}
		}
	}

	return &CryptoGenKey{
		id:        "cryptography_generate_keys",
		cfg:       cfg,
		targets:   targets,
		baseScore: baseScore,
	}
}

func (r *CryptoGenKey) ID() string { return r.id }

func (r *CryptoGenKey) Kinds() []python.NodeKind {
	return []python.NodeKind{python.KindCall}
}

func (r *CryptoGenKey) Visit(ctx *python.Context) iter.Seq[*finding.Finding] {
	return func(yield func(*finding.Finding) bool) {
		call, ok := ctx.Node.(*python.Call)
		if !ok {
			return
		}
		target, ok := r.targets[call.FullName()]
		if !ok {
			return
		}

		// A call site that does not match the formal shape is not a
		// detection, just not this function.
		bound, err := call.ApplySignature(target.shape)
		if err != nil {
			return
		}
		size, ok := bound.Args[0].(*python.Number)
		if !ok {
			return
		}

		score := r.cfg.ScoreOrDefault("crypto-gen-key", r.baseScore)
		if size.Value < r.cfg.MinKeySize(target.keyType) {
			score = 100
		}

		yield(finding.New(
			ctx.Path(),
			"Generation of cryptography key detected",
			finding.MakeSignature("crypto", "gen_key", ctx.Path(),
				strconv.Itoa(call.Info().Line)),
			score,
			finding.NewExtra().
				Set("function", call.FullName()).
				Set("key_type", target.keyType).
				Set("key_size", size.Value),
		))
	}
}
