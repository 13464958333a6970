// Package rules contains the tree-visiting detection rules dispatched by
// the traversal engine, plus the registry used to instantiate them.
package rules

import (
	"github.com/RootLUG/aura"
	"github.com/RootLUG/aura/python"
)

// RuleDefinition describes a registered rule and how to build it.
type RuleDefinition struct {
	ID          string
	Description string
	Create      func(cfg *aura.Config, semantic *aura.SemanticRules) python.NodeRule
}

// RuleFilter decides whether a rule with the given ID is included in a
// generated rule set.
type RuleFilter func(id string) bool

// NewRuleFilter returns a filter that reports the given action for every
// listed rule ID and the opposite for everything else.
func NewRuleFilter(action bool, ruleIDs ...string) RuleFilter {
	rulelist := make(map[string]bool, len(ruleIDs))
	for _, id := range ruleIDs {
		rulelist[id] = true
	}
	return func(id string) bool {
		if rulelist[id] {
			return action
		}
		return !action
	}
}

var ruleDefinitions = []RuleDefinition{
	{
		ID:          "cryptography_generate_keys",
		Description: "Analyze the generation of cryptography keys",
		Create:      NewCryptoGenKey,
	},
}

// Generate instantiates every registered rule passing all filters. The
// semantic catalogue may be nil, in which case rules fall back to their
// built-in defaults.
func Generate(cfg *aura.Config, semantic *aura.SemanticRules, filters ...RuleFilter) []python.NodeRule {
	var out []python.NodeRule
next:
	for _, def := range ruleDefinitions {
		for _, filter := range filters {
			if !filter(def.ID) {
				continue next
			}
		}
		out = append(out, def.Create(cfg, semantic))
	}
	return out
}
