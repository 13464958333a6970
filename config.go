package aura

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// DefaultMinKeySize is the smallest key size considered safe when the
// configuration does not override it for a key family.
const DefaultMinKeySize int64 = 2048

// Config holds the runtime settings of a scan: extraction limits, score
// overrides and minimum key sizes. Zero values fall back to built-in
// defaults, so an empty configuration is fully usable.
type Config struct {
	v *viper.Viper
}

// NewConfig returns a configuration with built-in defaults and no file
// backing.
func NewConfig() *Config {
	v := viper.New()
	v.SetDefault("log_level", "warn")
	v.SetDefault("maximum_archive_size", int64(0))
	v.SetDefault("min_key_sizes.rsa", DefaultMinKeySize)
	v.SetDefault("min_key_sizes.dsa", DefaultMinKeySize)
	return &Config{v: v}
}

// LoadConfig reads settings from the given file on top of the defaults.
// The format is inferred from the extension (yaml, json, toml, ini).
func LoadConfig(path string) (*Config, error) {
	c := NewConfig()
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	return c, nil
}

// MaximumArchiveSize returns the extraction size limit in bytes. The second
// return value is false when no limit is configured.
func (c *Config) MaximumArchiveSize() (int64, bool) {
	limit := c.v.GetInt64("maximum_archive_size")
	if limit <= 0 {
		return 0, false
	}
	return limit, true
}

// ScoreOrDefault returns the configured score override for the named
// detection, or the given default when none is set.
func (c *Config) ScoreOrDefault(name string, def int) int {
	key := "score." + name
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetInt(key)
}

// MinKeySize returns the smallest key size considered safe for a key
// family such as "rsa" or "dsa".
func (c *Config) MinKeySize(family string) int64 {
	key := "min_key_sizes." + family
	if !c.v.IsSet(key) {
		return DefaultMinKeySize
	}
	return c.v.GetInt64(key)
}

// LogLevel returns the configured logger level name.
func (c *Config) LogLevel() string {
	return c.v.GetString("log_level")
}

// SemanticRulesPath returns the configured path of the semantic-rule
// catalogue file, empty when none is configured.
func (c *Config) SemanticRulesPath() string {
	return c.v.GetString("semantic_rules")
}

// SemanticRules is the external detection catalogue: score overrides plus
// the key-generation functions the tree rules match against.
type SemanticRules struct {
	Scores             map[string]int    `json:"scores" yaml:"scores"`
	CryptoKeyFunctions []CryptoSignature `json:"crypto_key_generation" yaml:"crypto_key_generation"`
}

// CryptoSignature describes one family of key-generation calls: the fully
// qualified function names, the formal parameter carrying the requested
// size, and keyword parameters that default to an unset value.
type CryptoSignature struct {
	Functions []string `json:"functions" yaml:"functions"`
	KeyType   string   `json:"key_type" yaml:"key_type"`
	SizeParam string   `json:"size_param" yaml:"size_param"`
	Keywords  []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

const semanticRulesSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "scores": {
      "type": "object",
      "additionalProperties": {"type": "integer"}
    },
    "crypto_key_generation": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["functions", "key_type", "size_param"],
        "properties": {
          "functions": {
            "type": "array",
            "items": {"type": "string"},
            "minItems": 1
          },
          "key_type": {"type": "string"},
          "size_param": {"type": "string"},
          "keywords": {
            "type": "array",
            "items": {"type": "string"}
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// LoadSemanticRules reads and schema-validates a catalogue file. Both JSON
// and YAML are accepted, selected by file extension.
func LoadSemanticRules(path string) (*SemanticRules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading semantic rules %s: %w", path, err)
	}

	yamlFormat := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		yamlFormat = true
	}

	var doc any
	if yamlFormat {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing semantic rules %s: %w", path, err)
		}
		// Validation operates on canonical JSON values, so the YAML
		// document is normalized through a JSON round trip first.
		buf, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("parsing semantic rules %s: %w", path, err)
		}
		doc, err = jsonschema.UnmarshalJSON(strings.NewReader(string(buf)))
		if err != nil {
			return nil, fmt.Errorf("parsing semantic rules %s: %w", path, err)
		}
	} else {
		doc, err = jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("parsing semantic rules %s: %w", path, err)
		}
	}

	if err := validateSemanticRules(doc); err != nil {
		return nil, fmt.Errorf("invalid semantic rules %s: %w", path, err)
	}

	rules := &SemanticRules{}
	if yamlFormat {
		err = yaml.Unmarshal(raw, rules)
	} else {
		err = json.Unmarshal(raw, rules)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding semantic rules %s: %w", path, err)
	}
	return rules, nil
}

func validateSemanticRules(doc any) error {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(semanticRulesSchema))
	if err != nil {
		return err
	}
	if err := compiler.AddResource("semantic_rules.schema.json", schemaDoc); err != nil {
		return err
	}
	schema, err := compiler.Compile("semantic_rules.schema.json")
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
