package risk

import "fmt"

// FormatFileSize renders a byte count the way a person would say it.
func FormatFileSize(sizeBytes int64) string {
	if sizeBytes < 1024 {
		return fmt.Sprintf("%d bytes", sizeBytes)
	}
	size := float64(sizeBytes)
	for _, unit := range []string{"KB", "MB", "GB"} {
		size /= 1024.0
		if size < 1024.0 || unit == "GB" {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
	}
	return fmt.Sprintf("%.1f GB", size)
}
