package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/siting-cli/internal/pipeline"
	"github.com/sells-group/siting-cli/internal/store"
	"github.com/sells-group/siting-cli/internal/workspace"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a suitability analysis",
	Long:  "Derives and scores every criterion from the DEM and road network, overlays the scores and writes the candidate zones to the workspace.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		in := workspace.Inputs{}
		in.DEMPath, _ = cmd.Flags().GetString("dem")
		in.RoadsPath, _ = cmd.Flags().GetString("roads")
		in.MaskPath, _ = cmd.Flags().GetString("mask")
		applyAnalyzeFlags(cmd)

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		layout, err := workspace.Setup(cfg.Workspace.Root)
		if err != nil {
			return err
		}

		var st store.Store
		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		deriver, err := pipeline.NewTerrainDeriver(cfg.Analysis)
		if err != nil {
			return err
		}

		res, err := pipeline.New(cfg, st, layout, deriver).Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		formatAnalysis(os.Stdout, res, layout)
		return nil
	},
}

// applyAnalyzeFlags overrides configuration values with explicitly set flags.
func applyAnalyzeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Analysis.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("min-area") {
		cfg.Analysis.MinAreaHa, _ = flags.GetFloat64("min-area")
	}
	if flags.Changed("workspace") {
		cfg.Workspace.Root, _ = flags.GetString("workspace")
	}
}

// formatAnalysis writes a short report of a completed run to w.
func formatAnalysis(out io.Writer, res *pipeline.Result, layout workspace.Layout) {
	p := message.NewPrinter(language.English)
	s := res.Summary

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = p.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = p.Fprintf(w, "Grid:\t%d x %d cells @ %g\n", s.Grid.Width, s.Grid.Height, s.Grid.CellSize)
	_, _ = p.Fprintf(w, "Suitable cells:\t%d\n", s.Surface.Count)
	_, _ = p.Fprintf(w, "Suitability:\tmin %.2f  mean %.2f  max %.2f\n", s.Surface.Min, s.Surface.Mean, s.Surface.Max)
	_, _ = p.Fprintf(w, "Zones:\t%d\n", s.ZoneCount)
	_, _ = p.Fprintf(w, "Total area:\t%.2f ha\n", s.TotalAreaHa)
	for _, d := range s.Diagnostics {
		_, _ = fmt.Fprintf(w, "Warning:\t%s %s: %s\n", d.Criterion, d.Code, d.Message)
	}
	_, _ = fmt.Fprintf(w, "Zones shapefile:\t%s\n", layout.ZonesShapefile())
	_, _ = fmt.Fprintf(w, "Summary:\t%s\n", layout.Summary())
	_ = w.Flush()

	if len(res.Features) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "REGION\tCELLS\tAREA_HA\tMEAN\t")
	for _, f := range res.Features {
		_, _ = p.Fprintf(tw, "%d\t%d\t%.2f\t%.3f\t\n", f.Region.ID, f.Region.CellCount, f.AreaHa, f.Region.MeanValue)
	}
	_ = tw.Flush()
}

func init() {
	analyzeCmd.Flags().String("dem", "", "DEM grid document (JSON)")
	analyzeCmd.Flags().String("roads", "", "road network shapefile (.shp)")
	analyzeCmd.Flags().String("mask", "", "optional mask grid document (JSON); cells that are NoData or 0 are excluded")
	analyzeCmd.Flags().Float64("threshold", 0, "minimum suitability for a zone cell (default from config)")
	analyzeCmd.Flags().Float64("min-area", 0, "minimum zone area in hectares (default from config)")
	analyzeCmd.Flags().String("workspace", "", "workspace root (default from config)")
	analyzeCmd.Flags().Bool("no-store", false, "do not record the run in the run store")
	_ = analyzeCmd.MarkFlagRequired("dem")
	_ = analyzeCmd.MarkFlagRequired("roads")
	rootCmd.AddCommand(analyzeCmd)
}
