package generator

import (
	"context"
	"testing"

	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
)

func allWeekHours(open, close string) map[string]poi.Hours {
	hours := map[string]poi.Hours{}
	for _, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		hours[day] = poi.Hours{Open: open, Close: close}
	}
	return hours
}

func TestNumDays(t *testing.T) {
	cases := []struct {
		name    string
		dates   planmodel.DateRange
		want    int
		wantErr bool
	}{
		{
			name:  "two day trip",
			dates: planmodel.DateRange{Start: "2025-03-01", End: "2025-03-02"},
			want:  2,
		},
		{
			name:  "single day trip",
			dates: planmodel.DateRange{Start: "2025-03-01", End: "2025-03-01"},
			want:  1,
		},
		{
			name:    "end before start",
			dates:   planmodel.DateRange{Start: "2025-03-02", End: "2025-03-01"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := numDays(tc.dates)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got days=%d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("numDays: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d days, got %d", tc.want, got)
			}
		})
	}
}

// TestPlanDayAppliesLeadingBufferToFirstItem matches the two-day worked
// example: the first item of a day gets the 15-minute leading buffer even
// though it has no predecessor to apply travel time against.
func TestPlanDayAppliesLeadingBufferToFirstItem(t *testing.T) {
	catalog := poi.NewStubCatalog(
		poi.POI{ID: "A", Name: "A", AvgDurationMinutes: 120, Hours: allWeekHours("09:00", "17:00")},
		poi.POI{ID: "B", Name: "B", AvgDurationMinutes: 90, Hours: allWeekHours("09:00", "18:00")},
	)
	g := New(nil, catalog)
	prefs := planmodel.TripPreferences{
		Dates:  planmodel.DateRange{Start: "2025-03-01", End: "2025-03-02"},
		Window: planmodel.DailyWindow{Start: "10:00", End: "20:00"},
	}

	day1, err := g.planDay(context.Background(), 1, prefs, nil, []string{"A"})
	if err != nil {
		t.Fatalf("plan day 1: %v", err)
	}
	if len(day1) != 1 || day1[0].StartTime != "10:15" || day1[0].EndTime != "12:15" {
		t.Fatalf("expected A @ 10:15-12:15, got %+v", day1)
	}

	day2, err := g.planDay(context.Background(), 2, prefs, nil, []string{"B"})
	if err != nil {
		t.Fatalf("plan day 2: %v", err)
	}
	if len(day2) != 1 || day2[0].StartTime != "10:15" || day2[0].EndTime != "11:45" {
		t.Fatalf("expected B @ 10:15-11:45, got %+v", day2)
	}
}
