package analyzer

import (
	"fmt"
	"strconv"
)

// FormatBytes converts a byte count into a human-readable string (KB, MB, GB).
func FormatBytes(b int64) string {
	const unit = 1024
	if b < 0 {
		return "-" + FormatBytes(-b)
	}
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp]) // Kilo, Mega, Giga, Tera, Peta, Exa
}

// FormatCount renders an instantiation counter; single instances print as "-".
func FormatCount(n int64) string {
	if n <= 1 {
		return "-"
	}
	return "x" + strconv.FormatInt(n, 10)
}

// percentOf returns part as a percentage of total, or 0 when total is 0.
func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
