package cache

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"binday/internal/models"
)

// Dump writes a human-readable representation of a cache entry
func (e Entry) Dump(w io.Writer) {
	fmt.Fprintf(w, "=== Cache Dump ===\n\n")

	// Metadata
	fmt.Fprintf(w, "Metadata:\n")
	fmt.Fprintf(w, "  Version:       %d\n", e.Version)
	fmt.Fprintf(w, "  Premises:      %s\n", e.PremisesID)
	fmt.Fprintf(w, "  Last Modified: %s\n", orNone(e.LastModified))
	fmt.Fprintf(w, "  Saved:         %s (%s)\n\n",
		e.SavedAt.Format("2006-01-02 15:04:05"), humanize.Time(e.SavedAt))

	fmt.Fprintf(w, "Next Collections:\n")
	for _, c := range models.Categories {
		fmt.Fprintf(w, "  %-10s %s\n", c, orNone(e.Dates[string(c)]))
	}

	// Rows per category
	byCategory := make(map[string][]string)
	for _, r := range e.Rows {
		byCategory[r.Category] = append(byCategory[r.Category], r.Date)
	}

	fmt.Fprintf(w, "\nCached Rows (%d):\n", len(e.Rows))
	if len(e.Rows) == 0 {
		fmt.Fprintf(w, "  (none)\n")
	}
	for _, c := range models.Categories {
		dates := byCategory[string(c)]
		if len(dates) == 0 {
			continue
		}
		sort.Strings(dates)
		fmt.Fprintf(w, "  %s:\n", c)
		for _, d := range dates {
			fmt.Fprintf(w, "    %s\n", d)
		}
	}

	fmt.Fprintf(w, "\n=== End Cache Dump ===\n")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
