// Package config parses the token discovery core's declarative YAML
// configuration: system paths, the discovery stage's gating parameters,
// dictionary capacity and length bounds, and the tagged pipeline/extractor
// specs that bind directly to internal/processor and internal/extractor
// types. Parsing follows the teacher's internal/scenario/parser.go pattern:
// strict decode, then applyDefaults, then Validate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tokendisco/tokendiscovery/internal/processor"
	"github.com/tokendisco/tokendiscovery/internal/sais"
)

// FuzzerPreset selects which token stages run alongside the external
// fuzzer's havoc mutations.
type FuzzerPreset string

const (
	// PresetBaseline runs no token stages; an empty pipeline is tolerated.
	PresetBaseline FuzzerPreset = "baseline"
	// PresetStandardTokens runs token discovery and token mutators
	// without the preserving scheduler.
	PresetStandardTokens FuzzerPreset = "standard_tokens"
	// PresetPreservingTokens additionally routes mutation through
	// internal/scheduler's token-preserving scheduler.
	PresetPreservingTokens FuzzerPreset = "preserving_tokens"
)

// SchedulerPreset selects the external power schedule. The token
// discovery core does not implement these itself; it only validates and
// forwards the choice, per §6 ("External fuzzer parameters").
type SchedulerPreset string

const (
	SchedulerFast    SchedulerPreset = "fast"
	SchedulerExplore SchedulerPreset = "explore"
	SchedulerExploit SchedulerPreset = "exploit"
	SchedulerCOE     SchedulerPreset = "coe"
	SchedulerLin     SchedulerPreset = "lin"
	SchedulerQuad    SchedulerPreset = "quad"
)

// ExtractorKind selects which extractor feeds the discovery stage.
type ExtractorKind string

const (
	ExtractorCorpus        ExtractorKind = "corpus"
	ExtractorMutationDelta ExtractorKind = "mutation_delta"
)

// Config is the top-level document. Field names mirror §6's external
// interface table exactly; yaml.v3's KnownFields(true) makes any
// unrecognized key a hard parse error.
type Config struct {
	CorpusDir      string `yaml:"corpus_dir"`
	CrashesDir     string `yaml:"crashes_dir"`
	MinCorpusSize  int    `yaml:"min_corpus_size"`
	SearchInterval int    `yaml:"search_interval"`
	MaxTokens      int    `yaml:"max_tokens"`
	MinTokenLength int    `yaml:"min_token_length"`
	MaxTokenLength int    `yaml:"max_token_length"`
	SearchPoolSize int    `yaml:"search_pool_size"`

	Extractor ExtractorKind    `yaml:"extractor"`
	Pipeline  []ProcessorSpec  `yaml:"pipeline"`

	FuzzerPreset    FuzzerPreset    `yaml:"fuzzer_preset"`
	SchedulerPreset SchedulerPreset `yaml:"scheduler_preset"`

	Cores      string `yaml:"cores"`
	BrokerPort int    `yaml:"broker_port"`

	SilentRun bool `yaml:"silent_run"`
}

// ProcessorSpec is a tagged processor parameter set, one YAML node per
// §4.2 processor. Type discriminates which fields apply; unused fields
// for a given Type are ignored, matching the original's tagged-enum
// encoding (original_source/src/config.rs ProcessorConfig) the closest
// yaml.v3 can express without a custom UnmarshalYAML per variant.
type ProcessorSpec struct {
	Type string `yaml:"type"`

	// FilterNullBytes / RemoveRepetitive / RemoveSimilar
	MaxRatio  float64 `yaml:"max_ratio"`
	Threshold float64 `yaml:"threshold"`
	KeepLonger *bool  `yaml:"keep_longer"`

	// Sais
	MinLen        int                  `yaml:"min_len"`
	MaxLen        int                  `yaml:"max_len"`
	SupportFrac   float64              `yaml:"support_fraction"`
	ThresholdFn   *ThresholdFnSpec     `yaml:"threshold_fn"`

	// SplitAt / StripBytes
	Delimiters []string `yaml:"delimiters"`
	Bytes      []byte   `yaml:"bytes"`
	MinLength  int      `yaml:"min_length"`
}

// ThresholdFnSpec mirrors sais.ThresholdFunction's two variants.
type ThresholdFnSpec struct {
	Kind  string  `yaml:"kind"` // "fixed" or "interpolated"
	Value float64 `yaml:"value"`
	MinT  float64 `yaml:"min_threshold"`
	MaxT  float64 `yaml:"max_threshold"`
	Curve float64 `yaml:"curve"`
}

// DefaultMaxStackPow and other scheduler knobs are not part of this
// document: §6 lists "cores, broker_port" as external fuzzer parameters
// the core merely forwards, and the scheduler's own constants
// (internal/scheduler.DefaultMaxStackPow) are implementation detail, not
// user-facing configuration.

// Parser parses the token discovery config document. Mirrors the
// teacher's scenario.Parser: a strictMode flag gating KnownFields(true).
type Parser struct {
	strictMode bool
}

// NewParser returns a Parser that tolerates unknown fields.
func NewParser() *Parser {
	return &Parser{strictMode: false}
}

// NewStrictParser returns a Parser matching §6's "unknown fields must
// error" requirement.
func NewStrictParser() *Parser {
	return &Parser{strictMode: true}
}

// ParseFile reads path and parses it as a Config document.
func (p *Parser) ParseFile(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.Parse(data)
}

// Parse decodes data as a Config document, applies defaults, then
// validates.
func (p *Parser) Parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	if p.strictMode {
		decoder.KnownFields(true)
	}

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	p.applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in documented defaults for optional fields left
// zero by the decode, per §6 "missing optional fields take documented
// defaults".
func (p *Parser) applyDefaults(c *Config) {
	if c.CorpusDir == "" {
		c.CorpusDir = "./corpus"
	}
	if c.CrashesDir == "" {
		c.CrashesDir = "./crashes"
	}
	if c.MinCorpusSize == 0 {
		c.MinCorpusSize = 4
	}
	if c.SearchInterval == 0 {
		c.SearchInterval = 100
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 100
	}
	if c.MinTokenLength == 0 {
		c.MinTokenLength = 3
	}
	if c.MaxTokenLength == 0 {
		c.MaxTokenLength = 32
	}
	if c.SearchPoolSize == 0 {
		c.SearchPoolSize = 200
	}
	if c.Extractor == "" {
		c.Extractor = ExtractorCorpus
	}
	if c.FuzzerPreset == "" {
		c.FuzzerPreset = PresetBaseline
	}
	if c.SchedulerPreset == "" {
		c.SchedulerPreset = SchedulerFast
	}
	if c.Cores == "" {
		c.Cores = "all"
	}
	if c.BrokerPort == 0 {
		c.BrokerPort = 1337
	}
}

var validFuzzerPresets = map[FuzzerPreset]bool{
	PresetBaseline:         true,
	PresetStandardTokens:   true,
	PresetPreservingTokens: true,
}

var validSchedulerPresets = map[SchedulerPreset]bool{
	SchedulerFast:    true,
	SchedulerExplore: true,
	SchedulerExploit: true,
	SchedulerCOE:     true,
	SchedulerLin:     true,
	SchedulerQuad:    true,
}

var validExtractors = map[ExtractorKind]bool{
	ExtractorCorpus:        true,
	ExtractorMutationDelta: true,
}

// Validate checks semantic constraints across fields that yaml
// decoding alone can't enforce: enum membership, length ordering, and
// the preset/pipeline mismatch §6 calls out ("presets may imply
// invariants ... others warn"). A non-baseline preset with an empty
// pipeline is only a warning upstream (cmd/tokendiscovery, through
// discoverylog), never an error here; the discovery stage then passes
// the extractor's output into the dictionary unrefined.
func (c *Config) Validate() error {
	if !validFuzzerPresets[c.FuzzerPreset] {
		return fmt.Errorf("unknown fuzzer_preset %q", c.FuzzerPreset)
	}
	if !validSchedulerPresets[c.SchedulerPreset] {
		return fmt.Errorf("unknown scheduler_preset %q", c.SchedulerPreset)
	}
	if !validExtractors[c.Extractor] {
		return fmt.Errorf("unknown extractor %q", c.Extractor)
	}
	if c.MinTokenLength > c.MaxTokenLength {
		return fmt.Errorf("min_token_length (%d) exceeds max_token_length (%d)", c.MinTokenLength, c.MaxTokenLength)
	}
	if c.MinCorpusSize < 0 || c.SearchInterval <= 0 || c.SearchPoolSize < 0 || c.MaxTokens <= 0 {
		return fmt.Errorf("min_corpus_size, search_interval, search_pool_size and max_tokens must be non-negative, with search_interval and max_tokens strictly positive")
	}
	for i, step := range c.Pipeline {
		if _, err := step.build(); err != nil {
			return fmt.Errorf("pipeline[%d]: %w", i, err)
		}
	}
	return nil
}

// build turns a ProcessorSpec into the processor.Processor it
// describes, binding the tagged config directly to the concrete
// internal/processor type per §4.2.
func (s ProcessorSpec) build() (processor.Processor, error) {
	switch s.Type {
	case "filter_null_bytes":
		return processor.FilterNullBytes{MaxRatio: s.MaxRatio}, nil
	case "remove_repetitive":
		return processor.RemoveRepetitive{Threshold: s.Threshold}, nil
	case "remove_similar":
		keep := processor.KeepLonger
		if s.KeepLonger != nil && !*s.KeepLonger {
			keep = processor.KeepShorter
		}
		return processor.RemoveSimilar{Threshold: s.Threshold, Keep: keep}, nil
	case "remove_substrings":
		return processor.RemoveSubstrings{}, nil
	case "sais":
		mode, err := s.saisMode()
		if err != nil {
			return nil, err
		}
		return processor.Sais{MinLen: s.MinLen, MaxLen: s.MaxLen, Mode: mode}, nil
	case "split_at":
		delims := make([][]byte, len(s.Delimiters))
		for i, d := range s.Delimiters {
			delims[i] = []byte(d)
		}
		return processor.SplitAt{Delimiters: delims, MinLen: s.MinLength}, nil
	case "strip_bytes":
		return processor.NewStripBytes(s.Bytes, s.MinLength), nil
	default:
		return nil, fmt.Errorf("unknown pipeline step type %q", s.Type)
	}
}

func (s ProcessorSpec) saisMode() (sais.SelectionMode, error) {
	if s.ThresholdFn == nil {
		if s.SupportFrac > 0 {
			return sais.Threshold{T: s.SupportFrac}, nil
		}
		return nil, fmt.Errorf("sais step needs either support_fraction or threshold_fn")
	}
	switch s.ThresholdFn.Kind {
	case "fixed":
		return sais.ThresholdSelector{Fn: sais.FixedThreshold(s.ThresholdFn.Value), MinLen: s.MinLen, MaxLen: s.MaxLen}, nil
	case "interpolated":
		fn := sais.InterpolatedThreshold{MinT: s.ThresholdFn.MinT, MaxT: s.ThresholdFn.MaxT, Curve: s.ThresholdFn.Curve}
		return sais.ThresholdSelector{Fn: fn, MinLen: s.MinLen, MaxLen: s.MaxLen}, nil
	default:
		return nil, fmt.Errorf("unknown threshold_fn kind %q", s.ThresholdFn.Kind)
	}
}

// BuildPipeline binds every pipeline step to its concrete processor,
// returning a ready-to-run processor.Pipeline.
func (c *Config) BuildPipeline() (processor.Pipeline, error) {
	steps := make([]processor.Processor, 0, len(c.Pipeline))
	for i, spec := range c.Pipeline {
		step, err := spec.build()
		if err != nil {
			return processor.Pipeline{}, fmt.Errorf("pipeline[%d]: %w", i, err)
		}
		steps = append(steps, step)
	}
	return processor.Pipeline{Steps: steps}, nil
}

// LoadWithDefaults merges userPath over defaultPath (a deep YAML
// node merge, not a shallow overwrite) before strict-decoding the
// result, reproducing the original's find_default_config/merge_json
// layering in YAML rather than JSON.
func LoadWithDefaults(defaultPath, userPath string) (*Config, error) {
	defaultData, err := os.ReadFile(defaultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read default config %s: %w", defaultPath, err)
	}

	userData, err := os.ReadFile(userPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", userPath, err)
	}

	var base, override yaml.Node
	if err := yaml.Unmarshal(defaultData, &base); err != nil {
		return nil, fmt.Errorf("invalid default config %s: %w", defaultPath, err)
	}
	if err := yaml.Unmarshal(userData, &override); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", userPath, err)
	}

	merged := mergeYAMLNodes(&base, &override)

	out, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to remarshal merged config: %w", err)
	}

	return NewStrictParser().Parse(out)
}

// mergeYAMLNodes deep-merges override onto base for mapping nodes,
// recursing into nested mappings and otherwise letting override win,
// mirroring original_source/src/config.rs's merge_json.
func mergeYAMLNodes(base, override *yaml.Node) *yaml.Node {
	if base == nil || base.Kind == 0 {
		return override
	}
	if override == nil || override.Kind == 0 {
		return base
	}
	if base.Kind != yaml.DocumentNode && override.Kind == yaml.DocumentNode {
		override = override.Content[0]
	}
	if base.Kind == yaml.DocumentNode {
		if len(base.Content) == 0 {
			return override
		}
		merged := mergeYAMLNodes(base.Content[0], override)
		return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{merged}}
	}
	if base.Kind != yaml.MappingNode || override.Kind != yaml.MappingNode {
		return override
	}

	result := &yaml.Node{Kind: yaml.MappingNode, Tag: base.Tag}
	result.Content = append(result.Content, base.Content...)

	for i := 0; i+1 < len(override.Content); i += 2 {
		key := override.Content[i]
		val := override.Content[i+1]

		replaced := false
		for j := 0; j+1 < len(result.Content); j += 2 {
			if result.Content[j].Value == key.Value {
				result.Content[j+1] = mergeYAMLNodes(result.Content[j+1], val)
				replaced = true
				break
			}
		}
		if !replaced {
			result.Content = append(result.Content, key, val)
		}
	}
	return result
}
