package editor

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"
)

type IssueType string

const (
	IssueTimeConflict IssueType = "time_conflict"
	IssueOpeningHours IssueType = "opening_hours"
	IssueTimeWindow   IssueType = "time_window"
	IssueDistance     IssueType = "distance"
	IssueBudget       IssueType = "budget"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Issue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	ItemID     string    `json:"item_id,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Validate checks the trip's current itinerary against opening hours, the
// daily window, walking-distance budget, and internal time conflicts.
func (s *Service) Validate(ctx context.Context, tripID string) (Result, error) {
	items, err := s.store.Items(ctx, tripID)
	if err != nil {
		return Result{}, err
	}
	prefs, err := s.prefs.GetPreferences(ctx, tripID)
	if err != nil {
		return Result{}, err
	}

	byDay := map[int][]planmodel.ItineraryItem{}
	for _, it := range items {
		byDay[it.Day] = append(byDay[it.Day], it)
	}

	var issues []Issue
	var runningCost float64
	var budgetTotal *float64
	if prefs.Budget.Total != nil {
		v := prefs.Budget.Total.Amount
		budgetTotal = &v
	}

	for day, dayItems := range byDay {
		sort.SliceStable(dayItems, func(i, j int) bool { return dayItems[i].Order < dayItems[j].Order })
		weekday := weekdayForDate(prefs.Dates.Start, day)

		var walkedKm float64
		for i, item := range dayItems {
			issues = append(issues, s.checkOpeningHours(ctx, weekday, item)...)
			issues = append(issues, checkWindow(prefs.Window, item)...)

			if i > 0 {
				prev := dayItems[i-1]
				if before, _ := timegeo.Before(item.StartTime, prev.EndTime); before {
					issues = append(issues, Issue{
						Type: IssueTimeConflict, Severity: SeverityError, ItemID: item.ID,
						Message: fmt.Sprintf("%q starts before %q ends", item.Name, prev.Name),
					})
				}
			}
			if item.RouteFromPrevious != nil && item.RouteFromPrevious.Mode == planmodel.ModeWalking {
				walkedKm += item.RouteFromPrevious.DistanceKm
			}
			if item.CostEstimate != nil {
				runningCost += item.CostEstimate.Amount
			}
		}

		if prefs.Constraints.MaxWalkingKmPerDay != nil && walkedKm > *prefs.Constraints.MaxWalkingKmPerDay {
			issues = append(issues, Issue{
				Type: IssueDistance, Severity: SeverityWarning,
				Message: fmt.Sprintf("day %d walking distance %.1fkm exceeds the %.1fkm budget", day, walkedKm, *prefs.Constraints.MaxWalkingKmPerDay),
			})
		}
	}

	if budgetTotal != nil && runningCost > *budgetTotal {
		issues = append(issues, Issue{
			Type: IssueBudget, Severity: SeverityWarning,
			Message: fmt.Sprintf("accumulated estimate %.2f exceeds budget %.2f", runningCost, *budgetTotal),
		})
	}

	valid := true
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			valid = false
			break
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].ItemID < issues[j].ItemID })
	return Result{Valid: valid, Issues: issues}, nil
}

func (s *Service) checkOpeningHours(ctx context.Context, weekday string, item planmodel.ItineraryItem) []Issue {
	if item.POIID == "" {
		return nil
	}
	p, err := s.pois.Get(ctx, item.POIID)
	if err != nil {
		return nil
	}
	hours, ok := p.Hours[weekday]
	if !ok || hours.Closed {
		return []Issue{{
			Type: IssueOpeningHours, Severity: SeverityError, ItemID: item.ID,
			Message: fmt.Sprintf("%q is closed on %s", item.Name, weekday),
		}}
	}
	var issues []Issue
	if before, _ := timegeo.Before(item.StartTime, hours.Open); before {
		issues = append(issues, Issue{
			Type: IssueOpeningHours, Severity: SeverityError, ItemID: item.ID,
			Message: fmt.Sprintf("%q starts before opening time %s", item.Name, hours.Open),
		})
	}
	if before, _ := timegeo.Before(hours.Close, item.EndTime); before {
		issues = append(issues, Issue{
			Type: IssueOpeningHours, Severity: SeverityError, ItemID: item.ID,
			Message: fmt.Sprintf("%q ends after closing time %s", item.Name, hours.Close),
		})
	}
	return issues
}

func checkWindow(window planmodel.DailyWindow, item planmodel.ItineraryItem) []Issue {
	var issues []Issue
	if window.Start == "" || window.End == "" {
		return issues
	}
	if before, _ := timegeo.Before(item.StartTime, window.Start); before {
		issues = append(issues, Issue{
			Type: IssueTimeWindow, Severity: SeverityWarning, ItemID: item.ID,
			Message: fmt.Sprintf("%q starts before the daily window", item.Name),
		})
	}
	if before, _ := timegeo.Before(window.End, item.EndTime); before {
		issues = append(issues, Issue{
			Type: IssueTimeWindow, Severity: SeverityWarning, ItemID: item.ID,
			Message: fmt.Sprintf("%q ends after the daily window", item.Name),
		})
	}
	return issues
}

func weekdayForDate(start string, day int) string {
	d, err := timegeo.AddDate(start, day-1)
	if err != nil {
		return ""
	}
	wd, err := timegeo.DayOfWeek(d)
	if err != nil {
		return ""
	}
	return wd
}
