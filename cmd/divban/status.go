package main

import (
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aryonoco/divban/internal/systemd"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [container...]",
		Short: "Show the running/stopped status of one or more containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFromContext(cmd)
			entries, err := app.Orchestrator.Status(cmd.Context(), args)
			if err != nil {
				return err
			}
			printStatusTable(entries)
			return nil
		},
	}
}

func printStatusTable(entries []systemd.StatusEntry) {
	caser := cases.Title(language.English)
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	runningFmt := color.New(color.FgGreen).SprintfFunc()
	stoppedFmt := color.New(color.FgRed).SprintfFunc()

	tbl := table.New("Name", "State", "Description")
	tbl.WithHeaderFormatter(headerFmt)

	for _, e := range entries {
		state := "stopped"
		format := stoppedFmt
		if e.Running {
			state = "running"
			format = runningFmt
		}
		tbl.AddRow(e.Name, format(caser.String(state)), e.Description)
	}
	tbl.Print()
}
