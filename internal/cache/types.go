package cache

import "time"

const formatVersion = 1

// Sentinel values stored in place of a date.
const (
	valueNoCollection = "no_collection"
	valueAwaitingData = "awaiting_data"
)

// Entry is the on-disk form of one household's collection state
type Entry struct {
	Version      int               `json:"version"`
	PremisesID   string            `json:"premises_id"`
	LastModified string            `json:"last_modified,omitempty"`
	SavedAt      time.Time         `json:"saved_at"`
	Dates        map[string]string `json:"dates"` // category -> YYYY-MM-DD or sentinel
	Rows         []Row             `json:"rows"`
}

// Row is a filtered schedule row
type Row struct {
	Category string `json:"category"`
	Date     string `json:"date"` // YYYY-MM-DD
}
