package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/siting-cli/internal/model"
	"github.com/sells-group/siting-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect analysis run history",
	Long:  "Commands for listing runs, viewing their details, and listing the zones they produced.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs zones --

var runsZonesCmd = &cobra.Command{
	Use:   "zones <run-id>",
	Short: "List the candidate zones of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zones, err := st.ListZones(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs zones")
		}

		if len(zones) == 0 {
			fmt.Fprintln(os.Stderr, "No zones found.")
			return nil
		}

		formatZonesList(os.Stdout, zones)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, deriving, complete, failed, ...)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsZonesCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDEM\tSTATUS\tZONES\tAREA_HA\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t-----\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		dem := r.Params.DEMPath
		if len(dem) > 30 {
			dem = "..." + dem[len(dem)-27:]
		}

		zones, area := "-", "-"
		if r.Result != nil {
			zones = p.Sprintf("%d", r.Result.ZoneCount)
			area = p.Sprintf("%.2f", r.Result.TotalAreaHa)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			dem,
			r.Status,
			zones,
			area,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatZonesList writes a tabular list of zones to w.
func formatZonesList(out io.Writer, zones []model.Zone) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REGION\tCELLS\tAREA_HA\tMIN\tMEAN\tMAX\tROWS\tCOLS")
	_, _ = fmt.Fprintln(w, "------\t-----\t-------\t---\t----\t---\t----\t----")
	for _, z := range zones {
		_, _ = p.Fprintf(w, "%d\t%d\t%.2f\t%.3f\t%.3f\t%.3f\t%d-%d\t%d-%d\n",
			z.RegionID,
			z.CellCount,
			z.AreaHa,
			z.MinValue,
			z.MeanValue,
			z.MaxValue,
			z.Bounds.MinRow, z.Bounds.MaxRow,
			z.Bounds.MinCol, z.Bounds.MaxCol,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
