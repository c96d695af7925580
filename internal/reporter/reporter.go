// Package reporter builds day and period reports from persisted activities
// and breaks
package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/ledger"
	"github.com/actionsum/worktally/internal/models"
	"github.com/actionsum/worktally/internal/workday"
	"github.com/actionsum/worktally/pkg/utils"

	"github.com/pkg/errors"
)

// ErrInvalidPeriod is returned for an unknown period name
var ErrInvalidPeriod = errors.New("invalid period type")

// Source is the persisted record reports are built from
type Source interface {
	workday.History
}

// Reporter handles report generation
type Reporter struct {
	definition workday.Definition
	source     Source
	clock      clock.Clock
}

// New creates a new reporter
func New(def workday.Definition, source Source, clk clock.Clock) *Reporter {
	return &Reporter{definition: def, source: source, clock: clk}
}

// Period is a reporting range [Start, End)
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"`
}

// DayReport is the accounting of one calendar day
type DayReport struct {
	Date          string              `json:"date"`
	Workday       workday.Summary     `json:"workday"`
	TrackedTime   time.Duration       `json:"tracked_time"`
	CoveredTime   time.Duration       `json:"covered_time"`
	Apps          []models.AppSummary `json:"apps"`
	Breaks        []breaks.EndedBreak `json:"breaks"`
	RevokedBreaks int                 `json:"revoked_breaks"`
	ActivityCount int                 `json:"activity_count"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// PeriodReport aggregates the days of a period up to today
type PeriodReport struct {
	Period         Period              `json:"period"`
	Days           []DayReport         `json:"days"`
	Apps           []models.AppSummary `json:"apps"`
	TotalWorked    time.Duration       `json:"total_worked"`
	TotalBreaks    time.Duration       `json:"total_breaks"`
	TotalOverhours time.Duration       `json:"total_overhours"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// Day builds the report of date's calendar day
func (r *Reporter) Day(date time.Time) (*DayReport, error) {
	activities, err := r.source.ActivitiesOn(date)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load activities")
	}
	all, err := r.source.BreaksOn(date)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load breaks")
	}

	var valid []breaks.EndedBreak
	revoked := 0
	for _, b := range all {
		if b.IsRevoked() {
			revoked++
			continue
		}
		valid = append(valid, b)
	}

	w, err := workday.CreateBasedOn(date, r.definition, activities, valid)
	if err != nil {
		return nil, err
	}

	grouped, err := groupIntervals(date, activities, valid)
	if err != nil {
		return nil, err
	}

	return &DayReport{
		Date:          clock.StartOfDay(date).Format("2006-01-02"),
		Workday:       w.Summary(),
		TrackedTime:   grouped.Duration(),
		CoveredTime:   grouped.CoveredDuration(),
		Apps:          summarizeApps(activities),
		Breaks:        valid,
		RevokedBreaks: revoked,
		ActivityCount: len(activities),
		GeneratedAt:   r.clock.Now(),
	}, nil
}

// Generate builds the report of the named period around now
func (r *Reporter) Generate(periodType string) (*PeriodReport, error) {
	now := r.clock.Now()
	p, err := PeriodFor(periodType, now)
	if err != nil {
		return nil, err
	}

	report := &PeriodReport{Period: p, GeneratedAt: now}
	var activities []activity.EndedActivity

	for d := p.Start; d.Before(p.End) && !d.After(now); d = d.AddDate(0, 0, 1) {
		day, err := r.Day(d)
		if err != nil {
			return nil, errors.Wrapf(err, "day %s", d.Format("2006-01-02"))
		}
		report.Days = append(report.Days, *day)
		report.TotalWorked += day.Workday.TimeAlreadyActivelyWorked
		report.TotalBreaks += day.Workday.TimeOfAllBreaks
		report.TotalOverhours += day.Workday.OverhoursTime

		acts, err := r.source.ActivitiesOn(d)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load activities")
		}
		activities = append(activities, acts...)
	}
	report.Apps = summarizeApps(activities)
	return report, nil
}

// groupIntervals lays the day's activities and breaks on the interval ledger
func groupIntervals(date time.Time, activities []activity.EndedActivity, ended []breaks.EndedBreak) (*ledger.GroupedActivity, error) {
	included := make([]ledger.Occurrence, 0, len(activities))
	for _, a := range activities {
		included = append(included, ledger.Occurrence{OccurrenceID: a.ID, Period: a.Period()})
	}
	excluded := make([]ledger.Occurrence, 0, len(ended))
	for _, b := range ended {
		excluded = append(excluded, ledger.Occurrence{OccurrenceID: b.ID, Period: b.Period()})
	}

	g, err := ledger.FromOccurrences(date, included, excluded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to group intervals")
	}
	return g, nil
}

func summarizeApps(activities []activity.EndedActivity) []models.AppSummary {
	byApp := make(map[string]*models.AppSummary)
	var total time.Duration
	for _, a := range activities {
		s, ok := byApp[a.Application]
		if !ok {
			s = &models.AppSummary{AppName: a.Application}
			byApp[a.Application] = s
		}
		s.TotalDuration += a.Duration()
		s.Count++
		total += a.Duration()
	}

	out := make([]models.AppSummary, 0, len(byApp))
	for _, s := range byApp {
		if total > 0 {
			s.Percentage = float64(s.TotalDuration) / float64(total) * 100.0
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDuration == out[j].TotalDuration {
			return out[i].AppName < out[j].AppName
		}
		return out[i].TotalDuration > out[j].TotalDuration
	})
	return out
}

// PeriodFor calculates the range of day, week (from Monday) or month
func PeriodFor(periodType string, now time.Time) (Period, error) {
	today := clock.StartOfDay(now)
	var start, end time.Time

	switch periodType {
	case "day", "today", "":
		periodType = "day"
		start = today
		end = start.AddDate(0, 0, 1)

	case "week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = today.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return Period{}, errors.Wrapf(ErrInvalidPeriod, "%q (valid: day, week, month)", periodType)
	}

	return Period{Start: start, End: end, Type: periodType}, nil
}

// FormatDayText formats a day report as human-readable text
func FormatDayText(report *DayReport) string {
	var b strings.Builder
	w := report.Workday

	fmt.Fprintf(&b, "Workday %s\n", report.Date)
	fmt.Fprintf(&b, "  Worked:          %s\n", utils.FormatDuration(w.TimeAlreadyActivelyWorked))
	fmt.Fprintf(&b, "  Left to work:    %s (active %s)\n",
		utils.FormatDuration(w.OverallTimeLeftToWork), utils.FormatDuration(w.TimeLeftToWorkActively))
	fmt.Fprintf(&b, "  Overhours:       %s\n", utils.FormatDuration(w.OverhoursTime))
	fmt.Fprintf(&b, "  Breaks:          %s (valid %s, left %s)\n",
		utils.FormatDuration(w.TimeOfAllBreaks), utils.FormatDuration(w.ValidBreakTimeUsed), utils.FormatDuration(w.BreakTimeLeft))
	fmt.Fprintf(&b, "  Tracked:         %s in %d activities\n", utils.FormatDuration(report.TrackedTime), report.ActivityCount)

	if len(report.Apps) > 0 {
		b.WriteString("\n")
		writeApps(&b, report.Apps)
	}

	if len(report.Breaks) > 0 {
		b.WriteString("\nBreaks\n")
		for _, br := range report.Breaks {
			fmt.Fprintf(&b, "  %s  %s-%s  %-8s %s\n", br.ID,
				br.StartedAt.Format("15:04"), br.EndedAt.Format("15:04"),
				utils.FormatDuration(br.BreakDuration()), br.Description)
		}
	}
	if report.RevokedBreaks > 0 {
		fmt.Fprintf(&b, "  (%d revoked)\n", report.RevokedBreaks)
	}
	return b.String()
}

// FormatPeriodText formats a period report as human-readable text
func FormatPeriodText(report *PeriodReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Workday Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02"),
		report.Period.End.AddDate(0, 0, -1).Format("2006-01-02"))
	fmt.Fprintf(&b, "Worked: %s  Breaks: %s  Overhours: %s\n\n",
		utils.FormatDuration(report.TotalWorked),
		utils.FormatDuration(report.TotalBreaks),
		utils.FormatDuration(report.TotalOverhours))

	fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s\n", "Date", "Worked", "Breaks", "Left", "Over")
	b.WriteString(strings.Repeat("-", 56) + "\n")
	for _, d := range report.Days {
		fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s\n", d.Date,
			utils.FormatDuration(d.Workday.TimeAlreadyActivelyWorked),
			utils.FormatDuration(d.Workday.TimeOfAllBreaks),
			utils.FormatDuration(d.Workday.OverallTimeLeftToWork),
			utils.FormatDuration(d.Workday.OverhoursTime))
	}

	if len(report.Apps) > 0 {
		b.WriteString("\n")
		writeApps(&b, report.Apps)
	}
	return b.String()
}

func writeApps(b *strings.Builder, apps []models.AppSummary) {
	fmt.Fprintf(b, "%-30s %10s %9s\n", "Application", "Time", "Percent")
	b.WriteString(strings.Repeat("-", 51) + "\n")
	for _, app := range apps {
		fmt.Fprintf(b, "%-30s %10s %8.1f%%\n",
			utils.Truncate(app.AppName, 30), utils.FormatDuration(app.TotalDuration), app.Percentage)
	}
}

// FormatJSON formats any report as indented JSON
func FormatJSON(report any) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}
