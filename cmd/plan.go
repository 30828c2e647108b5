package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var degradeCmd = &cobra.Command{
	Use:   "degrade <plan-id>",
	Short: "Reduce a stored plan to its essentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runDegrade,
}

var statusCmd = &cobra.Command{
	Use:   "status <plan-id>",
	Short: "Show whether a stored plan is behind schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(degradeCmd, statusCmd)
}

func runDegrade(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	res, err := svc.Manager.DegradePlan(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "dropped %d, replaced %d buffers with %d\n",
		len(res.Dropped), len(res.Deleted), len(res.Created)); err != nil {
		return err
	}
	return writeTable(out, res.Plan)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	st, err := svc.Manager.CheckBehind(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"plan_id":         st.PlanID,
		"behind":          st.Behind,
		"current":         st.Current,
		"overdue_minutes": int(st.Overdue.Minutes()),
		"checked_at":      st.CheckedAt,
	})
}
