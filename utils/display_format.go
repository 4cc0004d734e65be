package utils

import (
	"time"
)

const displayDateLayout = "2 January 2006"

// FormatDisplayDate returns the date the way notification e-mails print it.
func FormatDisplayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(displayDateLayout)
}

