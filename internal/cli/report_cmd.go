package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/daemon"
	"github.com/actionsum/worktally/internal/database"
	"github.com/actionsum/worktally/internal/reporter"
	"github.com/actionsum/worktally/pkg/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newReportCmd(app *App) *cobra.Command {
	var asJSON bool
	var date string

	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Generate a workday report",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg, err := app.Config()
			if err != nil {
				return err
			}
			db, err := app.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rep := reporter.New(cfg.WorkdayDefinition(), database.NewRepository(db), app.Clock)

			var report any
			var text string
			if periodType == "day" {
				day, err := app.parseDate(date)
				if err != nil {
					return err
				}
				r, err := rep.Day(day)
				if err != nil {
					return err
				}
				report, text = r, reporter.FormatDayText(r)
			} else {
				r, err := rep.Generate(periodType)
				if err != nil {
					return err
				}
				report, text = r, reporter.FormatPeriodText(r)
			}

			if asJSON {
				out, err := reporter.FormatJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.Out, out)
				return nil
			}
			fmt.Fprint(app.Out, text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&date, "date", "", "Day to report on (YYYY-MM-DD, default today)")
	return cmd
}

func newBreaksCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "breaks",
		Short: "List the breaks of a day, revoked ones included",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := app.parseDate(date)
			if err != nil {
				return err
			}
			db, err := app.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := database.NewRepository(db).BreaksOn(day)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintf(app.Out, "No breaks on %s\n", day.Format(time.DateOnly))
				return nil
			}
			for _, b := range list {
				status := ""
				if b.IsRevoked() {
					status = "revoked"
				}
				fmt.Fprintf(app.Out, "%s  %s-%s  %-8s %-18s %s\n", b.ID,
					b.StartedAt.Format("15:04"), b.EndedAt.Format("15:04"),
					utils.FormatDuration(b.BreakDuration()), b.Description, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to list (YYYY-MM-DD, default today)")
	return cmd
}

func newRevokeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <break-id>",
		Short: "Revoke a break so its time counts as work again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			var revoked breaks.RevokedBreak
			running, _, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				revoked, err = revokeViaAPI(cfg.APIAddr(), args[0])
			} else {
				revoked, err = app.revokeInStore(args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Revoked break %s (%s, %s)\n", revoked.EndedBreak.ID,
				revoked.EndedBreak.Description, utils.FormatDuration(revoked.EndedBreak.BreakDuration()))
			return nil
		},
	}
}

// revokeViaAPI asks the running daemon to revoke, so its in-memory workday
// sees the revocation too
func revokeViaAPI(addr, id string) (breaks.RevokedBreak, error) {
	var revoked breaks.RevokedBreak

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/api/breaks/%s/revoke", addr, url.PathEscape(id)), "application/json", nil)
	if err != nil {
		return revoked, errors.Wrap(err, "failed to reach daemon")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return revoked, errors.Wrapf(breaks.ErrBreakNotFound, "break %s", id)
	default:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return revoked, errors.Errorf("daemon returned %s: %s", resp.Status, body.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(&revoked); err != nil {
		return revoked, errors.Wrap(err, "failed to decode daemon response")
	}
	return revoked, nil
}

func (a *App) revokeInStore(id string) (breaks.RevokedBreak, error) {
	db, err := a.openDB()
	if err != nil {
		return breaks.RevokedBreak{}, err
	}
	defer db.Close()

	return database.NewBreakStore(db, a.Location).Revoke(id, a.Clock.Now())
}

func (a *App) parseDate(s string) (time.Time, error) {
	if s == "" {
		return a.today(), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, a.Location)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q", s)
	}
	return d, nil
}
