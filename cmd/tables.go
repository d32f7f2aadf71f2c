package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/siting-cli/internal/config"
	"github.com/sells-group/siting-cli/internal/suitability"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the effective breakpoint tables and weights",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return formatTables(os.Stdout, cfg.Analysis)
	},
}

// formatTables writes the weights and the per-criterion scoring to w.
func formatTables(out io.Writer, a config.AnalysisConfig) error {
	slope, err := a.SlopeTable()
	if err != nil {
		return err
	}
	aspect, err := a.AspectTable()
	if err != nil {
		return err
	}
	distance, err := a.DistanceTable()
	if err != nil {
		return err
	}
	tables := map[string]*suitability.Table{
		suitability.CriterionSlope:    slope,
		suitability.CriterionAspect:   aspect,
		suitability.CriterionDistance: distance,
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CRITERION\tWEIGHT\tSCORING")
	_, _ = fmt.Fprintln(w, "---------\t------\t-------")
	weights := a.WeightSet()
	for _, name := range suitability.Criteria {
		scoring := fmt.Sprintf("quantile, %d classes", a.QuantileClasses)
		if t, ok := tables[name]; ok {
			scoring = t.String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%.3f\t%s\n", name, weights[name], scoring)
	}
	_, _ = fmt.Fprintf(w, "\nthreshold\t%g\t\n", a.Threshold)
	_, _ = fmt.Fprintf(w, "min area (ha)\t%g\t\n", a.MinAreaHa)
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
