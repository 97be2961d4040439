package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/atleastn/internal/dataset"
	"github.com/danielpatrickdp/atleastn/internal/evaluator"
	"github.com/danielpatrickdp/atleastn/internal/logging"
)

// #region import-cmd
func importCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "store a fixture file as a named dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := dataset.LoadFixture(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				base := filepath.Base(args[0])
				name = strings.TrimSuffix(base, filepath.Ext(base))
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveDataset(name, fixture.Attributes, fixture.Dataset()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d entities, %d attributes\n",
				name, len(fixture.Entities), len(fixture.Attributes))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "dataset name (default: file name without extension)")
	return cmd
}

// #endregion import-cmd

// #region datasets-cmd
func datasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "list stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.ListDatasets()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No datasets stored.")
				return nil
			}
			fmt.Fprintf(out, "%-24s  %10s  %8s  %s\n", "Name", "Attributes", "Entities", "Updated")
			fmt.Fprintf(out, "%-24s  %10s  %8s  %s\n", "----", "----------", "--------", "-------")
			for _, info := range infos {
				fmt.Fprintf(out, "%-24s  %10d  %8d  %s\n",
					info.Name, info.Attributes, info.EntityCount, humanize.Time(info.UpdatedAt))
			}
			return nil
		},
	}
}

// #endregion datasets-cmd

// #region history-cmd
type runOutput struct {
	RunID     string             `json:"run_id"`
	Dataset   string             `json:"dataset"`
	N         int                `json:"n"`
	Config    json.RawMessage    `json:"config,omitempty"`
	CreatedAt string             `json:"created_at"`
	Results   []evaluator.Result `json:"results"`
}

func toRunOutput(r dataset.Run) runOutput {
	out := runOutput{
		RunID:     r.RunID,
		Dataset:   r.Dataset,
		N:         r.N,
		CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Results:   r.Results,
	}
	if r.ConfigJSON != "" {
		out.Config = json.RawMessage(r.ConfigJSON)
	}
	return out
}

func historyCmd(a *app) *cobra.Command {
	var (
		last    int
		jsonOut bool
		logOnly bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "list recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if logOnly {
				entries, err := logging.RecentRuns(store.DB(), last)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(out, entries)
				}
				printRunLog(out, entries)
				return nil
			}

			runs, err := store.ListRuns(last)
			if err != nil {
				return err
			}
			if jsonOut {
				outputs := make([]runOutput, len(runs))
				for i, r := range runs {
					outputs[i] = toRunOutput(r)
				}
				return printJSON(out, outputs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-12s  %-20s  %4s  %8s  %-20s  %s\n", "Run", "Dataset", "N", "Entities", "Top", "Created")
			fmt.Fprintf(out, "%-12s  %-20s  %4s  %8s  %-20s  %s\n", "---", "-------", "-", "--------", "---", "-------")
			for _, r := range runs {
				top := "-"
				if len(r.Results) > 0 {
					top = fmt.Sprintf("%s %.3f", r.Results[0].Name, r.Results[0].Probability)
				}
				fmt.Fprintf(out, "%-12s  %-20s  %4d  %8d  %-20s  %s\n",
					shortID(r.RunID), r.Dataset, r.N, len(r.Results), top, humanize.Time(r.CreatedAt))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show this many runs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	cmd.Flags().BoolVar(&logOnly, "log", false, "show the run log, including server requests")
	return cmd
}

func printRunLog(w io.Writer, entries []logging.RunEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Run log is empty.")
		return
	}
	fmt.Fprintf(w, "%-12s  %-8s  %-20s  %4s  %8s  %10s  %-6s  %s\n",
		"Run", "Trigger", "Dataset", "N", "Entities", "Duration", "Result", "When")
	for _, e := range entries {
		fmt.Fprintf(w, "%-12s  %-8s  %-20s  %4d  %8d  %10s  %-6s  %s\n",
			shortID(e.RunID), e.TriggerType, e.Dataset, e.N, e.EntityCount,
			e.Duration.Round(time.Microsecond), e.Outcome, humanize.Time(e.CreatedAt))
	}
}

// #endregion history-cmd

// #region show-cmd
func showCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "print a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, toRunOutput(run))
			}

			fmt.Fprintf(out, "Run:      %s\n", run.RunID)
			fmt.Fprintf(out, "Dataset:  %s\n", run.Dataset)
			fmt.Fprintf(out, "N:        %d\n", run.N)
			fmt.Fprintf(out, "Created:  %s (%s)\n", run.CreatedAt.Format("2006-01-02T15:04:05Z"), humanize.Time(run.CreatedAt))
			roundTo := runRoundTo(run, a.settings.RoundTo)
			fmt.Fprintf(out, "\n%s\n", evaluator.Format(run.Results, nameWidth(run.Results), roundTo))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

// runRoundTo returns the precision the run was ranked with, or fallback
// when the run carries no usable config.
func runRoundTo(run dataset.Run, fallback int) int {
	if run.ConfigJSON == "" {
		return fallback
	}
	var cfg struct {
		RoundTo *int
	}
	if err := json.Unmarshal([]byte(run.ConfigJSON), &cfg); err != nil || cfg.RoundTo == nil || *cfg.RoundTo < 0 {
		return fallback
	}
	return *cfg.RoundTo
}

// #endregion show-cmd

// #region helpers
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
