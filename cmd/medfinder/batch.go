package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/medicine-finder/internal/ranking"
)

// batchOutcome is one entry of the batch report.
type batchOutcome struct {
	Index      int                       `json:"index"`
	RequestID  string                    `json:"requestId,omitempty"`
	Result     *ranking.RankedResult     `json:"result,omitempty"`
	Simplified *ranking.SimplifiedResult `json:"simplified,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// newBatchCmd creates the batch subcommand.
func newBatchCmd() *cobra.Command {
	var (
		input  string
		output string
		simple bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Rank every request in a JSON file",
		Long: `Batch reads a JSON array of ranking requests, each shaped as
{"origin": {"lat": .., "lon": ..}, "medicines": [{"name": ..}], "top_k": ..},
ranks them against one warmed session and writes a JSON report. A request
that fails is reported with its error; the rest still run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			requests, err := readBatch(input)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
			defer cancel()

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			services, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer services.Close()

			if err := warmWithSpinner(ctx, ui, services.Session); err != nil {
				return err
			}

			var bar *ProgressBar
			if !outputJSON && IsTerminal() {
				bar = NewProgressBar(int64(len(requests)), "Ranking")
			}

			outcomes, failed := runBatch(ctx, services.Session, requests, simple, func() {
				if bar != nil {
					bar.Add(1)
				}
			})
			if bar != nil {
				bar.Finish()
			}

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				defer f.Close()
				if err := writeJSON(f, outcomes); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			} else if outputJSON {
				if err := writeJSON(cmd.OutOrStdout(), outcomes); err != nil {
					return err
				}
			}

			if !outputJSON {
				ui.Success("Ranked %d of %d requests", len(requests)-failed, len(requests))
				if failed > 0 {
					ui.Warning("%d requests failed", failed)
				}
				if output != "" {
					ui.KeyValue("Report", output)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file with an array of requests")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file")
	cmd.Flags().BoolVar(&simple, "simple", false, "report simplified results")
	cmd.MarkFlagRequired("input")

	return cmd
}

func readBatch(path string) ([]ranking.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var requests []ranking.Request
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("batch file %s has no requests", path)
	}
	return requests, nil
}

// Ranker ranks a request and records the result.
type Ranker interface {
	RankAndRecord(ctx context.Context, req ranking.Request) (*ranking.RankedResult, error)
}

// runBatch ranks requests in order and returns one outcome per request plus
// the number that failed. A cancelled context marks the remainder failed.
func runBatch(ctx context.Context, r Ranker, requests []ranking.Request, simple bool, step func()) ([]batchOutcome, int) {
	outcomes := make([]batchOutcome, 0, len(requests))
	failed := 0
	for i, req := range requests {
		o := batchOutcome{Index: i}
		res, err := r.RankAndRecord(ctx, req)
		switch {
		case err != nil:
			o.Error = err.Error()
			failed++
		case simple:
			o.RequestID = res.RequestID
			o.Simplified = ranking.Simplify(res)
		default:
			o.RequestID = res.RequestID
			o.Result = res
		}
		outcomes = append(outcomes, o)
		if step != nil {
			step()
		}
	}
	return outcomes, failed
}
