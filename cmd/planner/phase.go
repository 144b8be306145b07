package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
)

func phaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Show or advance your planning phase",
		RunE:  runPhaseStatus,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show your phase, unlocked features and what it takes to advance",
		RunE:  runPhaseStatus,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "advance",
		Short: "Move to the next phase when ready",
		RunE:  runPhaseAdvance,
	})
	return cmd
}

func runPhaseStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.planner.PhaseStatus(ctx, a.user())
	if err != nil {
		return err
	}

	lines := []string{
		cli.Field("Phase", cli.BoldStyle.Render(string(status.State.CurrentPhase))),
		cli.Field("Entered", status.State.PhaseEnteredAt.Format("2006-01-02 15:04")),
		cli.Field("Unlocked", strings.Join(status.Features, ", ")),
	}

	tr := status.Transition
	switch {
	case tr.NextPhase == nil:
		lines = append(lines, cli.Field("Next", "final phase reached"))
	case tr.Ready:
		lines = append(lines, cli.Field("Next", cli.SuccessStyle.Render(string(*tr.NextPhase)+" (ready)")))
	default:
		lines = append(lines, cli.Field("Next", string(*tr.NextPhase)))
		if tr.Requirement != "" {
			lines = append(lines, cli.Field("Requirement", tr.Requirement))
		}
		if tr.DaysElapsed != nil && tr.DaysRequired != nil {
			lines = append(lines, cli.Field("Progress", fmt.Sprintf("%.1f of %d days", *tr.DaysElapsed, *tr.DaysRequired)))
		}
	}

	fmt.Println(cli.RenderBox("Phase", strings.Join(lines, "\n")))
	return nil
}

func runPhaseAdvance(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.planner.AdvancePhase(ctx, a.user())
	if err != nil {
		return err
	}
	if !res.Advanced {
		fmt.Println(cli.FormatWarning(res.Message))
		return nil
	}
	fmt.Println(cli.FormatSuccess(res.Message))
	fmt.Println(cli.Field("Unlocked", strings.Join(res.Features, ", ")))
	return nil
}
