package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/database"
	"github.com/actionsum/worktally/pkg/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPruneCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete raw signals older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.Tracker.RetentionDays
			}
			if days <= 0 {
				return errors.New("retention must be at least one day")
			}

			db, err := app.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cutoff := clock.StartOfDay(app.today()).AddDate(0, 0, -days)
			removed, err := database.NewRepository(db).DeleteSignalsBefore(cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Removed %d signals recorded before %s\n", removed, cutoff.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Keep this many days of signals (default from config)")
	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all tracking data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(app.Out, "This will delete all tracking data. Are you sure? (yes/no): ")
				answer, _ := bufio.NewReader(app.In).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "yes" && answer != "y" {
					fmt.Fprintln(app.Out, "Operation cancelled")
					return nil
				}
			}

			db, err := app.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.NewRepository(db).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Database cleared successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newErrorsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Show the most recent tracker errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			logs, err := database.NewRepository(db).RecentErrors(limit)
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Fprintln(app.Out, "No errors recorded")
				return nil
			}
			for _, l := range logs {
				fmt.Fprintf(app.Out, "%s  %-8s %s\n", l.Timestamp.In(app.Location).Format("2006-01-02 15:04:05"),
					l.Component, utils.Truncate(l.ErrorMsg, 120))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of errors to show")
	return cmd
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.Out, "worktally version %s\n", Version)
			fmt.Fprintf(app.Out, "  commit: %s\n", Commit)
			fmt.Fprintf(app.Out, "  built:  %s\n", Date)
		},
	}
}
