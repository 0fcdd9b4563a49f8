package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/ascend/internal/achievement"
)

var achievementsUser string

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List achievements, optionally with a user's progress",
	Args:  cobra.NoArgs,
	RunE:  runAchievements,
}

func init() {
	achievementsCmd.Flags().StringVar(&achievementsUser, "user", "",
		"Show unlock state and progress for this user")
}

func runAchievements(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if achievementsUser == "" {
		registry, err := achievement.Default()
		if err != nil {
			return fmt.Errorf("load achievements: %w", err)
		}
		if jsonOutput {
			return printJSON(out, registry.All())
		}
		tw := newTabWriter(out)
		fmt.Fprintln(tw, "ID\tNAME\tRARITY\tREWARD")
		for _, def := range registry.All() {
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%d XP\n", def.ID, def.Emoji, def.Name, def.Rarity, def.XPReward)
		}
		return tw.Flush()
	}

	userID, err := userArg(achievementsUser)
	if err != nil {
		return err
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

	statuses, err := svc.Achievements(context.Background(), userID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, statuses)
	}

	tw := newTabWriter(out)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPROGRESS")
	for _, s := range statuses {
		status := mutedStyle.Render("locked")
		if s.Unlocked {
			status = goldStyle.Render("unlocked " + s.UnlockedAt.String())
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%3.0f%%\n", s.ID, s.Emoji, s.Name, status, s.Progress*100)
	}
	return tw.Flush()
}
