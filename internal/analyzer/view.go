package analyzer

import (
	"fmt"
	"time"

	"binday/internal/models"
)

// CategoryInfo is the display metadata for a category.
type CategoryInfo struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

var categoryInfo = map[models.Category]CategoryInfo{
	models.General: {
		Label: "General Waste",
		URL:   "https://www.leeds.gov.uk/residents/bins-and-recycling/your-bins/black-bin",
		Icon:  "mdi:trash-can",
	},
	models.Recycling: {
		Label: "Recycling",
		URL:   "https://www.leeds.gov.uk/residents/bins-and-recycling/your-bins/green-recycling-bin",
		Icon:  "mdi:recycle",
	},
	models.Garden: {
		Label: "Garden Waste",
		URL:   "https://www.leeds.gov.uk/residents/bins-and-recycling/your-bins/brown-garden-waste-bin",
		Icon:  "mdi:leaf",
	},
}

// Info returns display metadata for c.
func Info(c models.Category) CategoryInfo {
	return categoryInfo[c]
}

const (
	StateToday     = "Today"
	StateTomorrow  = "Tomorrow"
	StateCollected = "Collected, waiting new data"
	StateNone      = "No collection"
	StateAwaiting  = "Awaiting data"
	thisWeekPrefix = "This Week: "
	nextWeekPrefix = "Next Week: "
	futurePrefix   = "Future: "
)

// CategoryView is what observers see for one category.
type CategoryView struct {
	Category models.Category `json:"category"`
	Code     string          `json:"code"`
	CategoryInfo
	Date     *string `json:"date"`
	Sentinel string  `json:"sentinel,omitempty"`
	State    string  `json:"state"`
	Days     *int    `json:"days"`
}

// HouseholdView is the read surface for one premises.
type HouseholdView struct {
	PremisesID   string         `json:"premises_id"`
	Categories   []CategoryView `json:"categories"`
	Next         *CategoryView  `json:"next"`
	LastModified string         `json:"last_modified,omitempty"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// BuildView renders state relative to now. Dates that have passed since the
// last refresh are reported as collected rather than dropped.
func BuildView(state models.CollectionState, now time.Time) HouseholdView {
	v := HouseholdView{
		PremisesID:   state.PremisesID,
		LastModified: state.LastModified,
	}
	if !state.UpdatedAt.IsZero() {
		t := state.UpdatedAt
		v.UpdatedAt = &t
	}

	for _, c := range models.Categories {
		v.Categories = append(v.Categories, categoryView(c, state.Dates[c], now))
	}

	if c, _, ok := NextUpcoming(state.Dates, now); ok {
		next := categoryView(c, state.Dates[c], now)
		v.Next = &next
	}
	return v
}

func categoryView(c models.Category, value models.DateValue, now time.Time) CategoryView {
	cv := CategoryView{
		Category:     c,
		Code:         c.Code(),
		CategoryInfo: Info(c),
	}

	switch value.Kind {
	case models.Resolved:
		key := DateToKey(value.Date)
		days := DaysBetween(now, value.Date)
		cv.Date = &key
		cv.State = StateLabel(value.Date, now)
		if days >= 0 {
			cv.Days = &days
		}
	case models.NoCollection:
		cv.Sentinel = value.Kind.String()
		cv.State = StateNone
	default:
		cv.Sentinel = models.AwaitingData.String()
		cv.State = StateAwaiting
	}
	return cv
}

// StateLabel describes a collection date relative to now, using Monday
// based weeks.
func StateLabel(date, now time.Time) string {
	today := NormalizeDate(now)
	d := NormalizeDate(date.In(now.Location()))

	thisWeekEnd := weekStart(today).AddDate(0, 0, 6)
	nextWeekEnd := thisWeekEnd.AddDate(0, 0, 7)

	switch {
	case d.Before(today):
		return StateCollected
	case d.Equal(today):
		return StateToday
	case d.Equal(today.AddDate(0, 0, 1)):
		return StateTomorrow
	case !d.After(thisWeekEnd):
		return thisWeekPrefix + d.Weekday().String()
	case !d.After(nextWeekEnd):
		return nextWeekPrefix + d.Weekday().String()
	default:
		return fmt.Sprintf("%s%s", futurePrefix, DateToKey(d))
	}
}
