package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/medicine-finder/internal/api/rpc"
	"github.com/spherical-ai/medicine-finder/internal/geo"
	"github.com/spherical-ai/medicine-finder/internal/ranking"
)

// newRankCmd creates the rank subcommand.
func newRankCmd() *cobra.Command {
	var (
		lat      float64
		lon      float64
		meds     []string
		medsFile string
		topK     int
		dryRun   bool
		simple   bool
		server   string
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the nearest stores for a list of medicines",
		Example: `  medfinder rank --lat 12.91 --lon 77.51 --med Paracetamol --med "Pan D"
  medfinder rank --lat 12.91 --lon 77.51 --meds-file prescription.json --simple --json
  medfinder rank --server http://localhost:8090 --lat 12.91 --lon 77.51 --med Crocin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			requested, err := medicineRequests(meds, medsFile)
			if err != nil {
				return err
			}
			req := ranking.Request{
				Origin:    geo.Point{Lat: lat, Lon: lon},
				Medicines: requested,
				TopK:      topK,
			}

			if server != "" {
				if dryRun {
					return errors.New("--dry-run is decided by the server; drop it when using --server")
				}
				return rankOnServer(cmd, server, req, simple)
			}
			if dryRun {
				cfg.Ranking.DryRun = true
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
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

			start := time.Now()
			res, err := services.Session.RankAndRecord(ctx, req)
			if err != nil {
				return err
			}

			switch {
			case outputJSON && simple:
				return writeJSON(cmd.OutOrStdout(), ranking.Simplify(res))
			case outputJSON:
				return writeJSON(cmd.OutOrStdout(), res)
			}

			renderResult(ui, res)
			ui.Info("Ranked %d stores in %s", len(res.Stores), FormatDuration(time.Since(start)))
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the shopper")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of the shopper")
	cmd.Flags().StringArrayVarP(&meds, "med", "m", nil, "medicine name (repeatable)")
	cmd.Flags().StringVar(&medsFile, "meds-file", "", "JSON file with {\"medicines\": [...]}, a list of medicine objects or a list of names")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of nearest stores to evaluate (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip embeddings; exact matches only")
	cmd.Flags().BoolVar(&simple, "simple", false, "print the simplified result")
	cmd.Flags().StringVar(&server, "server", "", "rank on a running medfinder-api at this base URL instead of locally")

	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")

	return cmd
}

// rankOnServer sends req to a medfinder-api over its Connect endpoint and
// prints the answer the same way a local ranking is printed.
func rankOnServer(cmd *cobra.Command, server string, req ranking.Request, simple bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	client := rpc.NewRankingClient(http.DefaultClient, strings.TrimRight(server, "/"))
	resp, err := client.CallUnary(ctx, connect.NewRequest(&rpc.RankRequest{
		Origin:    req.Origin,
		Medicines: req.Medicines,
		TopK:      int32(req.TopK),
		Simple:    simple && outputJSON,
	}))
	if err != nil {
		return fmt.Errorf("rank on %s: %w", server, err)
	}

	msg := resp.Msg
	switch {
	case msg.Simplified != nil:
		return writeJSON(cmd.OutOrStdout(), msg.Simplified)
	case msg.Result == nil:
		return fmt.Errorf("rank on %s: empty response", server)
	case outputJSON:
		return writeJSON(cmd.OutOrStdout(), msg.Result)
	}

	ui := NewUI(outputJSON, noColor)
	defer ui.Close()
	renderResult(ui, msg.Result)
	ui.KeyValue("Server", server)
	return nil
}

// warmWithSpinner initializes the session, showing a spinner on terminals.
func warmWithSpinner(ctx context.Context, ui *UI, session *ranking.Session) error {
	if session.State() == ranking.StateReady {
		return nil
	}
	if outputJSON || !IsTerminal() {
		return session.Warm(ctx, nil)
	}

	sp := NewSpinner("Loading catalog...")
	sp.Start()
	err := session.Warm(ctx, func(done, total int, storeID string) {
		sp.UpdateMessage(fmt.Sprintf("Embedding store %s (%d/%d)", storeID, done, total))
	})
	sp.Stop()
	if err != nil {
		return err
	}
	ui.Success("Catalog ready")
	return nil
}

// medicineRequests merges --med names with the contents of --meds-file.
func medicineRequests(names []string, medsFile string) ([]ranking.RequestedMedicine, error) {
	var out []ranking.RequestedMedicine
	if medsFile != "" {
		fromFile, err := readMedsFile(medsFile)
		if err != nil {
			return nil, err
		}
		out = append(out, fromFile...)
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, ranking.RequestedMedicine{Name: n})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no medicines given: use --med or --meds-file")
	}
	return out, nil
}

// readMedsFile reads a prescription scan ({"medicines": ["..."]}), a JSON
// array of medicine objects or a JSON array of plain names.
func readMedsFile(path string) ([]ranking.RequestedMedicine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read medicines file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var meds []ranking.RequestedMedicine
		if err := json.Unmarshal(data, &meds); err == nil {
			return meds, nil
		}
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("parse medicines file %s: expected medicine objects or names: %w", path, err)
		}
		scan := ranking.PrescriptionScan{Medicines: names}
		return scan.Requests(), nil
	}

	var scan ranking.PrescriptionScan
	if err := json.Unmarshal(data, &scan); err != nil {
		return nil, fmt.Errorf("parse medicines file %s: %w", path, err)
	}
	return scan.Requests(), nil
}

// renderResult prints the ranked stores and the substitutions made.
func renderResult(ui *UI, res *ranking.RankedResult) {
	ui.Section("Ranked stores")

	rows := make([][]string, 0, len(res.Stores))
	for i, st := range res.Stores {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			st.Name,
			fmt.Sprintf("%.2f km", st.DistanceKm),
			fmt.Sprintf("%d/%d", st.Counts.Available, st.TotalRequested),
			fmt.Sprintf("%d", st.Counts.Alternatives),
			fmt.Sprintf("%d", st.Counts.Missing),
			fmt.Sprintf("%.2f", st.TotalPrice),
			fmt.Sprintf("%.3f", st.CompositeScore),
		})
	}
	ui.Table([]string{"#", "Store", "Distance", "Available", "Alt", "Missing", "Total", "Score"}, rows)

	for _, st := range res.Stores {
		for _, e := range st.Items {
			switch e.Status {
			case ranking.StatusAlternative:
				line := fmt.Sprintf("%s: %s → %s", st.Name, e.Requested.Name, e.MatchedItem.Name)
				if e.Similarity != nil {
					line += fmt.Sprintf(" (similarity %.2f)", *e.Similarity)
				}
				if e.PriceJump {
					ui.Warning("%s, price jump to %.2f", line, e.MatchedItem.Price)
				} else {
					ui.Step("%s", line)
				}
			case ranking.StatusMissing:
				if verbose {
					ui.Warning("%s: %s not found", st.Name, e.Requested.Name)
				}
			}
		}
	}

	if res.EmbeddingModel != "" {
		ui.KeyValue("Embedding model", res.EmbeddingModel)
	}
	ui.KeyValue("Request", res.RequestID)
}
