// Token Discovery Core - standalone demonstration driver
//
// Runs the suffix-array/mutation-delta token discovery stage against an
// in-process executor so the whole pipeline (corpus -> extractor ->
// processor pipeline -> dictionary -> token mutators) is exercisable
// without a real target binary.
package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tokendisco/tokendiscovery/internal/config"
	"github.com/tokendisco/tokendiscovery/internal/corpus"
	"github.com/tokendisco/tokendiscovery/internal/coverage"
	"github.com/tokendisco/tokendiscovery/internal/dictionary"
	"github.com/tokendisco/tokendiscovery/internal/discovery"
	"github.com/tokendisco/tokendiscovery/internal/discoverylog"
	"github.com/tokendisco/tokendiscovery/internal/extractor"
	"github.com/tokendisco/tokendiscovery/internal/mutator"
	"github.com/tokendisco/tokendiscovery/internal/scheduler"
	"github.com/tokendisco/tokendiscovery/internal/shmtoken"
)

var (
	version = "0.1.0-dev"

	cycles     int
	defaultCfg string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tokendiscovery <config_path>",
		Short: "Token discovery core - corpus mining and mutation-delta token extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}

	rootCmd.Flags().IntVar(&cycles, "cycles", 20, "Number of discovery+mutation cycles to run")
	rootCmd.Flags().StringVar(&defaultCfg, "defaults", "", "Optional default_config.yaml merged underneath config_path")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tokendiscovery version %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	discoverylog.SetSilent(cfg.SilentRun)
	discoverylog.Info("loaded config: preset=%s extractor=%s pipeline_steps=%d", cfg.FuzzerPreset, cfg.Extractor, len(cfg.Pipeline))
	if cfg.FuzzerPreset != config.PresetBaseline && len(cfg.Pipeline) == 0 {
		discoverylog.Warn("fuzzer_preset %s has an empty pipeline: extracted entries go into the dictionary unrefined", cfg.FuzzerPreset)
	}

	pipeline, err := cfg.BuildPipeline()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	cps := corpus.New(cfg.CorpusDir)

	covMap := coverage.NewCoverageMap(1 << 16)
	observer := coverage.NewMapObserver(covMap)
	exec := coverage.ObserverExecutor{
		Observer: observer,
		Target:   func(input []byte) { recordSyntheticCoverage(covMap, input) },
	}

	// mutation_delta needs a concrete (parent, child) pair per call, which
	// this demonstration loop doesn't produce a fresh one of every tick;
	// it wires the corpus extractor either way and leaves mutation_delta
	// to the package's own tests (internal/extractor/mutation_delta_test.go).
	extract := extractor.Extractor(extractor.Corpus{Source: cps, SearchPoolSize: cfg.SearchPoolSize})

	dict := dictionary.NewWithConfig(&dictionary.Config{MaxTokens: cfg.MaxTokens})

	stage := &discovery.Stage{
		Corpus:     cps,
		Minimizer:  cps,
		Extractor:  extract,
		Pipeline:   pipeline,
		Dictionary: dict,
		Config: discovery.Config{
			MinCorpusSize:    cfg.MinCorpusSize,
			SearchInterval:   cfg.SearchInterval,
			MinimizeInterval: cfg.SearchInterval * 5,
		},
	}

	mutators := buildMutators(cfg, dict)

	var sched *scheduler.Scheduler
	if cfg.FuzzerPreset == config.PresetPreservingTokens {
		sched = scheduler.New(mutators, 0)
	}

	var shmChan *shmtoken.Channel
	if cfg.FuzzerPreset != config.PresetBaseline {
		shmChan, err = shmtoken.GetOrCreate(shmtoken.NewName("tokendisco"), cfg.MaxTokens, cfg.MaxTokenLength)
		if err != nil {
			discoverylog.Warn("shm token channel unavailable: %v", err)
		} else {
			defer shmChan.Close()
		}
	}

	seed := []byte("seed-input-0001")
	cps.AddBytes(seed)

	current := seed
	baseline := exec.Run(current)
	for i := 0; i < cycles; i++ {
		result := stage.Tick()
		if result.TokensAdded > 0 && shmChan != nil {
			shmChan.WriteTokens(dict.Tokens())
		}

		mutated, err := mutateOnce(mutators, sched, current)
		if err != nil {
			discoverylog.Warn("mutation cycle %d failed: %v", i, err)
			continue
		}

		fp := exec.Run(mutated)
		novel := !fp.Equal(baseline)
		if novel && cps.AddWithCoverage(mutated, covMap.GetStats()) {
			current = mutated
			baseline = fp
		}
	}

	discoverylog.Info("finished: corpus_size=%d dictionary_size=%d", cps.Size(), dict.Len())
	return nil
}

// loadConfig strict-parses configPath, optionally merging it over
// defaultCfg first (original's find_default_config/merge_json layering).
func loadConfig(configPath string) (*config.Config, error) {
	if defaultCfg != "" {
		return config.LoadWithDefaults(defaultCfg, configPath)
	}
	return config.NewStrictParser().ParseFile(configPath)
}

// recordSyntheticCoverage feeds a deterministic, input-derived edge
// trace into covMap so the demonstration loop has something to
// differentiate on without a real instrumented target.
func recordSyntheticCoverage(covMap *coverage.CoverageMap, input []byte) {
	hasher := coverage.NewEdgeHasher()
	var prev uint32
	for _, b := range input {
		block := coverage.BlockID("synthetic", int(b))
		edge := hasher.HashEdge(block)
		covMap.RecordEdge(prev, uint32(edge))
		prev = uint32(edge)
	}
}

// buildMutators assembles the havoc pool, plus the token operators when
// the preset calls for them.
func buildMutators(cfg *config.Config, dict *dictionary.Dictionary) []mutator.Mutator {
	mutators := []mutator.Mutator{
		mutator.NewBitFlipMutator(4),
		mutator.NewByteFlipMutator(2),
		mutator.NewArithmeticMutator(4, 35),
		mutator.NewInterestingValueMutator(4),
		mutator.NewByteSwapMutator(2),
		mutator.NewRandomByteMutator(4),
		mutator.NewDeleteMutator(8),
		mutator.NewInsertMutator(8),
		mutator.NewCloneMutator(8),
	}

	if cfg.FuzzerPreset == config.PresetBaseline {
		return mutators
	}

	mutators = append(mutators,
		&mutator.TokenInsert{Dict: dict, MaxSize: cfg.MaxTokenLength * 64},
		&mutator.TokenReplace{Dict: dict},
	)
	return mutators
}

// mutateOnce runs one mutation round: through the preserving scheduler
// when configured, otherwise a single random draw from the full pool.
func mutateOnce(mutators []mutator.Mutator, sched *scheduler.Scheduler, input []byte) ([]byte, error) {
	if sched != nil {
		result, err := sched.MutateStacked(input)
		if err != nil {
			return nil, err
		}
		if result.UsedToken {
			result.TokenUsed.PostExec(true)
		}
		return result.Output, nil
	}

	if len(mutators) == 0 {
		return input, nil
	}
	m := mutators[secureIndex(len(mutators))]
	return m.Mutate(input)
}

func secureIndex(n int) int {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return int(binary.BigEndian.Uint64(b[:]) % uint64(n))
}
