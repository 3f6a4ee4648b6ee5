package backup

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count as a human-readable string using binary
// (1024) unit steps with two decimal places, e.g. "1.50 MB".
func FormatSize(sizeBytes int64) string {
	size := float64(sizeBytes)
	for _, unit := range sizeUnits {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f PB", size)
}
