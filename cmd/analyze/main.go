package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"equipment-analytics-api/analytics"
	"equipment-analytics-api/config"
	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
	"equipment-analytics-api/services"
)

const localOwner uint = 1

type options struct {
	format     string
	seed       uint64
	trees      int
	predict    []string
	importance bool
	verbose    bool
}

// Result is what one offline run prints.
type Result struct {
	File              string                      `json:"file"`
	RowCount          int                         `json:"row_count"`
	Summary           analytics.Summary           `json:"summary"`
	Metrics           ml.Metrics                  `json:"metrics"`
	Predictions       []services.PredictionResult `json:"predictions,omitempty"`
	FeatureImportance map[string]ml.Importance    `json:"feature_importance,omitempty"`
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := options{}
	def := ml.DefaultTrainer()

	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Summarise an equipment CSV and train its models offline",
		Long: `analyze runs the same validation, summary, outlier filtering and training
as the API on a local file, then prints the result as JSON or YAML.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "json" && opts.format != "yaml" {
				return fmt.Errorf("unsupported --format: %s", opts.format)
			}
			res, err := run(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return render(out, opts.format, res)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "json", "output format: json or yaml")
	f.Uint64Var(&opts.seed, "seed", def.Seed, "random seed for the split and the forests")
	f.IntVar(&opts.trees, "trees", def.Trees, "trees per forest")
	f.StringSliceVarP(&opts.predict, "predict", "p", nil, "categories to predict (default: every known category)")
	f.BoolVar(&opts.importance, "importance", false, "include forest feature importance")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress to stderr")
	return cmd
}

func run(ctx context.Context, path string, opts options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store := history.NewMemoryStore()
	trainer := services.NewTrainer(config.TrainingConfig{Seed: opts.seed, Trees: opts.trees})
	analysis := services.NewAnalysisService(store, trainer, logger)
	predictions := services.NewPredictionService(store, logger)

	d, err := analysis.Ingest(ctx, localOwner, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	res := &Result{
		File:     d.Filename,
		RowCount: d.RowCount,
		Summary:  d.Summary.Data(),
		Metrics:  d.Metrics.Data(),
	}

	categories := opts.predict
	if len(categories) == 0 {
		categories = res.Summary.CategoryNames()
	}
	for _, category := range categories {
		p, err := predictions.Predict(ctx, localOwner, d.ID, category)
		if err != nil {
			return nil, err
		}
		res.Predictions = append(res.Predictions, *p)
	}

	if opts.importance {
		fi, err := predictions.FeatureImportance(ctx, localOwner, d.ID)
		if err != nil {
			return nil, err
		}
		res.FeatureImportance = fi
	}
	return res, nil
}

// render writes YAML through the JSON encoding so both formats share the
// same keys and field order.
func render(w io.Writer, format string, res *Result) error {
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(body))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(body, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
