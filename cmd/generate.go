package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dayplan/config"
	"github.com/kilianp07/dayplan/connectors"
	"github.com/kilianp07/dayplan/connectors/dayfile"
	"github.com/kilianp07/dayplan/connectors/exits"
	"github.com/kilianp07/dayplan/core/dayplan"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/store"
	"github.com/kilianp07/dayplan/infra/logger"
	"github.com/kilianp07/dayplan/pkg/export"
)

const formatTable = "table"

var (
	dayPath  string
	format   string
	outPath  string
	nowValue string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a plan from a day file without persisting it",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&dayPath, "day", "d", "", "day file (yaml)")
	generateCmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json, csv or html")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, stdout when empty")
	generateCmd.Flags().StringVar(&nowValue, "now", "", "generation time (RFC3339), defaults to the current time")
	_ = generateCmd.MarkFlagRequired("day")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	day, err := dayfile.Load(dayPath)
	if err != nil {
		return err
	}
	plan, err := generateDay(cmd.Context(), cfg, day, nowValue)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if format == formatTable {
		return writeTable(out, plan)
	}
	return export.Write(out, format, plan)
}

// generateDay runs one generation against an in-memory store fed by the
// day file.
func generateDay(ctx context.Context, cfg *config.Config, day *dayfile.Day, now string) (model.DailyPlan, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rules, err := cfg.Planner.Rules()
	if err != nil {
		return model.DailyPlan{}, fmt.Errorf("planner rules: %w", err)
	}
	p := connectors.FromStatic(day.Data)
	if cfg.Exit != nil && len(day.Data.Exits) == 0 {
		calc, err := exits.New(*cfg.Exit)
		if err != nil {
			return model.DailyPlan{}, fmt.Errorf("exit calculator: %w", err)
		}
		p.Exits = calc
	}
	mgr, err := dayplan.NewManager(store.NewMemoryStore(), p.Commitments, p.Tasks, p.Routines, p.Exits,
		rules, logger.New("generate"))
	if err != nil {
		return model.DailyPlan{}, err
	}
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return model.DailyPlan{}, fmt.Errorf("invalid --now: %w", err)
		}
		mgr.SetClock(func() time.Time { return t })
	}
	return mgr.GeneratePlan(ctx, day.Request(false))
}

func writeTable(w io.Writer, plan model.DailyPlan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "plan %s\tuser %s\t%s\t%s\n", plan.ID, plan.UserID, plan.DateKey(), plan.Status)
	fmt.Fprintln(tw, "#\tSTART\tEND\tTYPE\tNAME\tSTATUS")
	for _, b := range model.BySequence(plan.Blocks) {
		status := string(b.Status)
		if b.SkipReason != "" {
			status += " (" + b.SkipReason + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", b.SequenceOrder,
			b.StartTime.Format("15:04"), b.EndTime.Format("15:04"), b.ActivityType, b.Name, status)
	}
	for _, e := range plan.ExitTimes {
		fmt.Fprintf(tw, "exit\t%s\t\t%s\t%s\t\n", e.ExitTime.Format("15:04"), e.TravelMethod, e.CommitmentID)
	}
	return tw.Flush()
}
