package util

import (
	"fmt"
	"time"
)

func Human(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Millis formats a duration as whole milliseconds, e.g. "1234 ms".
func Millis(d time.Duration) string {
	return fmt.Sprintf("%d ms", d.Milliseconds())
}
