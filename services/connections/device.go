package connections

import (
	"strings"

	"github.com/mileusna/useragent"
)

// DeviceInfo condenses a raw User-Agent header into the short label
// stored on connection and refresh-credential rows.
func DeviceInfo(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	ua := useragent.Parse(rawUA)
	parts := make([]string, 0, 3)
	if ua.Name != "" {
		parts = append(parts, ua.Name+" "+ua.Version)
	}
	if ua.OS != "" {
		parts = append(parts, ua.OS)
	}
	if ua.Device != "" {
		parts = append(parts, ua.Device)
	}
	if len(parts) == 0 {
		return rawUA
	}
	return strings.Join(parts, ", ")
}
