package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/atleastn/internal/dataset"
	"github.com/danielpatrickdp/atleastn/internal/evaluator"
	"github.com/danielpatrickdp/atleastn/internal/logging"
)

var errExpectationMismatch = errors.New("results do not match fixture expectations")

// #region rank-cmd
func rankCmd(a *app) *cobra.Command {
	var (
		stored    string
		summary   bool
		record    bool
		check     bool
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "rank [FILE]",
		Short: "rank the entities of a fixture file or a stored dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (stored != "") {
				return errors.New("pass either a fixture file or --dataset")
			}

			var (
				fixture *dataset.Fixture
				name    string
				err     error
			)
			if stored != "" {
				fixture, err = a.loadStored(stored)
				name = stored
			} else {
				fixture, err = dataset.LoadFixture(args[0])
				name = args[0]
			}
			if err != nil {
				return err
			}

			cfg := a.rankConfig(cmd, fixture)
			ev, err := evaluator.New(fixture.Dataset(), fixture.Attributes, cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			var results []evaluator.Result
			if a.settings.Workers > 0 {
				results, err = ev.EvaluateParallel(cmd.Context(), a.settings.Workers)
			} else {
				results, err = ev.Evaluate()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, evaluator.Format(results, nameWidth(results), cfg.RoundTo))

			if summary {
				if err := printSummary(out, results, a.settings.SummaryCutoff); err != nil {
					return err
				}
			}

			entry := logging.RunEntry{
				TriggerType: "cli",
				Dataset:     name,
				N:           ev.N(),
				EntityCount: len(results),
				Duration:    time.Since(start),
				Outcome:     logging.OutcomeOK,
			}
			if record {
				runID, err := a.recordRun(name, ev.N(), cfg, results, entry)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "recorded run %s\n", runID)
				entry.RunID = runID
			}
			a.log.Info("rank complete", logging.RunFields(entry)...)

			if check {
				if mismatches := fixture.CheckExpected(results, tolerance); len(mismatches) > 0 {
					for _, m := range mismatches {
						fmt.Fprintf(cmd.ErrOrStderr(), "mismatch: %s\n", m)
					}
					return errExpectationMismatch
				}
				fmt.Fprintln(out, "expectations met")
			}
			return nil
		},
	}

	addEvaluationFlags(cmd)
	addWorkersFlag(cmd)
	cmd.Flags().Float64("summary-cutoff", 0.5, "probability counted as a hit in --summary")
	configFlag(cmd.Flags(), "summary-cutoff", "summary_cutoff")

	cmd.Flags().StringVar(&stored, "dataset", "", "rank a dataset from the store instead of a file")
	cmd.Flags().BoolVar(&summary, "summary", false, "print summary statistics after the ranking")
	cmd.Flags().BoolVar(&record, "record", false, "store the ranking as a run")
	cmd.Flags().BoolVar(&check, "check", false, "compare against the fixture's expected results")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-9, "allowed difference for --check")
	return cmd
}

// #endregion rank-cmd

// #region rank-helpers

// rankConfig overlays the fixture settings on the configured defaults, then
// reapplies any evaluation flag given on the command line.
func (a *app) rankConfig(cmd *cobra.Command, fixture *dataset.Fixture) evaluator.Config[string] {
	base := a.settings.EvaluatorConfig()
	cfg := fixture.Config.EvaluatorConfig(base)

	changed := changedEvaluationFlags(cmd)
	if changed["threshold"] {
		cfg.Threshold = base.Threshold
		cfg.N = 0
	}
	if changed["n"] {
		cfg.N = base.N
	}
	if changed["round-to"] {
		cfg.RoundTo = base.RoundTo
	}
	if changed["default-probability"] {
		cfg.DefaultProbability = base.DefaultProbability
	}
	return cfg
}

func (a *app) loadStored(name string) (*dataset.Fixture, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ds, err := store.LoadDataset(name)
	if err != nil {
		return nil, err
	}
	f := &dataset.Fixture{
		Attributes: ds.Attributes,
		Entities:   make(map[string]map[string]float64, len(ds.Entities)),
	}
	for entity, attrs := range ds.Entities {
		f.Entities[entity] = attrs
	}
	return f, nil
}

func (a *app) recordRun(name string, n int, cfg evaluator.Config[string], results []evaluator.Result, entry logging.RunEntry) (string, error) {
	store, err := a.openStore()
	if err != nil {
		return "", err
	}
	defer store.Close()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	run, err := store.RecordRun(dataset.Run{
		Dataset:    name,
		N:          n,
		ConfigJSON: string(configJSON),
		Results:    results,
	})
	if err != nil {
		return "", err
	}
	entry.RunID = run.RunID
	entry.CreatedAt = run.CreatedAt
	if err := logging.LogRun(store.DB(), entry); err != nil {
		a.log.Warn("run log write failed", logging.RunFields(entry)...)
	}
	return run.RunID, nil
}

func nameWidth(results []evaluator.Result) int {
	width := 0
	for _, r := range results {
		if n := len([]rune(r.Name)); n > width {
			width = n
		}
	}
	return width
}

func printSummary(w io.Writer, results []evaluator.Result, cutoff float64) error {
	s, err := evaluator.Summarize(results, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 24))
	fmt.Fprintf(w, "Entities:  %d\n", s.Count)
	fmt.Fprintf(w, "Mean:      %.4f\n", s.Mean)
	fmt.Fprintf(w, "Median:    %.4f\n", s.Median)
	fmt.Fprintf(w, "Std Dev:   %.4f\n", s.StdDev)
	fmt.Fprintf(w, "Min:       %.4f\n", s.Min)
	fmt.Fprintf(w, "Max:       %.4f\n", s.Max)
	fmt.Fprintf(w, "At >= %.2f: %d\n", s.Cutoff, s.AtOrAbove)
	return nil
}

// #endregion rank-helpers
