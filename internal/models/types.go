package models

import "time"

// Category is a waste-collection stream.
type Category string

const (
	General   Category = "GENERAL"
	Recycling Category = "RECYCLING"
	Garden    Category = "GARDEN"
)

// Categories lists every category in display order.
var Categories = []Category{General, Recycling, Garden}

// CategoryFromCode maps the schedule feed's bin colour code.
func CategoryFromCode(code string) (Category, bool) {
	switch code {
	case "BLACK":
		return General, true
	case "GREEN":
		return Recycling, true
	case "BROWN":
		return Garden, true
	}
	return "", false
}

// Code returns the feed code for c.
func (c Category) Code() string {
	switch c {
	case General:
		return "BLACK"
	case Recycling:
		return "GREEN"
	case Garden:
		return "BROWN"
	}
	return ""
}

type PremisesRecord struct {
	PremisesID  string `json:"premises_id"`
	HouseName   string `json:"house_name"`
	HouseNumber string `json:"house_number"`
	Postcode    string `json:"postcode"`
}

type ScheduleRow struct {
	PremisesID string    `json:"premises_id"`
	Category   Category  `json:"category"`
	Date       time.Time `json:"date"` // calendar day, midnight in the configured location
}

type DateKind int

const (
	AwaitingData DateKind = iota
	NoCollection
	Resolved
)

func (k DateKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case NoCollection:
		return "no_collection"
	default:
		return "awaiting_data"
	}
}

// DateValue is either a resolved calendar day or one of the sentinels.
type DateValue struct {
	Kind DateKind
	Date time.Time
}

func ResolvedDate(d time.Time) DateValue { return DateValue{Kind: Resolved, Date: d} }

// CollectionState is replaced wholesale on every refresh, never patched.
type CollectionState struct {
	PremisesID   string
	Dates        map[Category]DateValue
	Rows         []ScheduleRow
	LastModified string
	UpdatedAt    time.Time
}

// AwaitingState is the placeholder used before any data has been seen.
func AwaitingState(premisesID string) CollectionState {
	dates := make(map[Category]DateValue, len(Categories))
	for _, c := range Categories {
		dates[c] = DateValue{Kind: AwaitingData}
	}
	return CollectionState{PremisesID: premisesID, Dates: dates}
}

// HasSentinels reports whether any category is still awaiting data.
func (s CollectionState) HasSentinels() bool {
	for _, c := range Categories {
		if v, ok := s.Dates[c]; !ok || v.Kind == AwaitingData {
			return true
		}
	}
	return false
}

type OutcomeKind int

const (
	// Fresh means the feed was downloaded and the state rebuilt.
	Fresh OutcomeKind = iota
	// NotModified means the probe token was not newer; nothing changed.
	NotModified
	// Fallback means the feed failed and state came from cache or memory.
	Fallback
	// Unavailable means the feed failed and nothing usable was found.
	Unavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case Fresh:
		return "fresh"
	case NotModified:
		return "not_modified"
	case Fallback:
		return "fallback"
	default:
		return "unavailable"
	}
}

// Outcome is the result of one refresh attempt. Err is set for Fallback
// and Unavailable and carries the transport failure that caused them.
type Outcome struct {
	Kind  OutcomeKind
	State CollectionState
	Err   error
}
