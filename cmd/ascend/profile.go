package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/ascend/internal/leveling"
	"github.com/hyperengineering/ascend/internal/types"
)

var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show a user's level, XP and HP",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

// profileView is the --json shape of the profile command.
type profileView struct {
	types.Profile
	TotalXP     int        `json:"total_xp"`
	NextLevelXP int        `json:"next_level_xp"`
	Progress    float64    `json:"progress"`
	Today       types.Date `json:"today"`
}

func runProfile(cmd *cobra.Command, args []string) error {
	userID, err := userArg(args[0])
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

	p, err := svc.Profile(context.Background(), userID)
	if err != nil {
		return err
	}

	view := profileView{
		Profile:     p,
		TotalXP:     leveling.TotalXP(p.Level, p.XP),
		NextLevelXP: leveling.Threshold(p.Level),
		Progress:    leveling.Progress(p.Level, p.XP),
		Today:       svc.Today(p),
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, view)
	}

	hp := goodStyle.Render(fmt.Sprintf("%d/%d", p.HP, p.MaxHP))
	if p.HP*4 <= p.MaxHP {
		hp = badStyle.Render(fmt.Sprintf("%d/%d", p.HP, p.MaxHP))
	}

	fmt.Fprintln(out, titleStyle.Render("Profile "+p.UserID))
	fmt.Fprintf(out, "%s   %s\n", labelStyle.Render("Level:"), goldStyle.Render(fmt.Sprint(p.Level)))
	fmt.Fprintf(out, "%s      %s %s / %s\n", labelStyle.Render("XP:"),
		progressBar(view.Progress, 20), humanize.Comma(int64(p.XP)), humanize.Comma(int64(view.NextLevelXP)))
	fmt.Fprintf(out, "%s   %s\n", labelStyle.Render("Total:"), humanize.Comma(int64(view.TotalXP)))
	fmt.Fprintf(out, "%s      %s\n", labelStyle.Render("HP:"), hp)
	fmt.Fprintf(out, "%s   %s\n", labelStyle.Render("Today:"), view.Today)
	return nil
}
