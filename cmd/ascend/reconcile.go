package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/ascend/internal/types"
)

var reconcileDate string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <user-id>",
	Short: "Charge a user's missed days and evaluate achievements",
	Long: "Runs the same reconciliation the app triggers on open: every due habit " +
		"without a log between the watermark and the day before --date is recorded " +
		"as missed and charged, then achievements are evaluated.",
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "",
		"Logical date to reconcile up to (YYYY-MM-DD, default today)")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	userID, err := userArg(args[0])
	if err != nil {
		return err
	}

	var date types.Date
	if reconcileDate != "" {
		date, err = types.ParseDate(reconcileDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := svc.OpenApp(context.Background(), userID, date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}

	r := res.Reconciliation
	fmt.Fprintln(out, titleStyle.Render("Reconciled "+userID+" for "+res.Date.String()))
	switch {
	case r.Baseline:
		fmt.Fprintf(out, "Baseline set, watermark %s\n", r.Watermark)
	case r.Range.Empty():
		fmt.Fprintf(out, "Nothing to reconcile, watermark %s\n", r.Watermark)
	default:
		fmt.Fprintf(out, "Range:     %s .. %s\n", r.Range.From, r.Range.To)
		fmt.Fprintf(out, "Missed:    %d\n", r.MissedCount)
		if r.Penalty > 0 {
			fmt.Fprintf(out, "Penalty:   %s\n", badStyle.Render(fmt.Sprintf("-%d HP", r.Penalty)))
		}
		fmt.Fprintf(out, "Watermark: %s\n", r.Watermark)
	}
	for _, d := range res.Unlocked {
		fmt.Fprintf(out, "Unlocked:  %s (+%d XP)\n", goldStyle.Render(d.AchievementID), d.XPReward)
	}
	fmt.Fprintf(out, "Level %d, XP %d, HP %d/%d\n",
		res.Profile.Level, res.Profile.XP, res.Profile.HP, res.Profile.MaxHP)
	return nil
}
