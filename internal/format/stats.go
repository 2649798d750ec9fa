package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// LineCount renders a count of lines for human display, e.g. "1,204 lines".
func LineCount(n int) string {
	if n == 1 {
		return "1 line"
	}
	return fmt.Sprintf("%s lines", humanize.Comma(int64(n)))
}

// RelativeTime renders t relative to now, e.g. "3 days ago".
func RelativeTime(t time.Time) string {
	return humanize.Time(t)
}

// Percent renders a share of total as a percentage, rounded to one decimal.
func Percent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}
