package discovery

import (
	"strings"

	"github.com/HerbHall/lanward/pkg/models"
)

// classificationRule maps a set of vendor/hostname patterns to a device type.
type classificationRule struct {
	deviceType models.DeviceType
	patterns   []string
}

// classificationRules defines name-to-device-type mappings. Patterns are
// matched case-insensitively via strings.Contains against the vendor name
// and the hostname.
//
// Order matters: the first match wins, so specific categories (consoles,
// TVs) come before the broad desktop vendors that also build them.
var classificationRules = []classificationRule{
	{models.DeviceTypePhone, []string{
		"iphone", "android", "pixel", "oneplus", "galaxy", "samsung",
		"xiaomi", "oppo", "vivo", "huawei device", "motorola mobility",
		"mobile",
	}},
	{models.DeviceTypeTablet, []string{
		"ipad", "tablet", "kindle",
	}},
	{models.DeviceTypeSmartTV, []string{
		"smart-tv", "smarttv", "bravia", "roku", "vizio", "tcl",
		"chromecast", "appletv", "apple tv", "fire tv",
	}},
	{models.DeviceTypeGaming, []string{
		"playstation", "sony interactive", "nintendo", "xbox", "steam deck",
	}},
	{models.DeviceTypeIoT, []string{
		"raspberry", "espressif", "sonos", "ring", "wyze", "philips",
		"shelly", "tuya", "sonoff", "nest", "echo", "tasmota",
	}},
	{models.DeviceTypeLaptop, []string{
		"macbook", "laptop", "thinkpad", "notebook",
	}},
	{models.DeviceTypeDesktop, []string{
		"dell", "lenovo", "hewlett packard", "hp inc", "intel",
		"asustek", "msi", "gigabyte", "desktop", "imac",
	}},
}

// Classify returns a device type hint from the vendor name and hostname.
// Returns DeviceTypeUnknown when nothing matches.
func Classify(vendor, hostname string) models.DeviceType {
	haystack := strings.ToLower(vendor + " " + hostname)
	if strings.TrimSpace(haystack) == "" {
		return models.DeviceTypeUnknown
	}

	for i := range classificationRules {
		for _, pattern := range classificationRules[i].patterns {
			if strings.Contains(haystack, pattern) {
				return classificationRules[i].deviceType
			}
		}
	}
	return models.DeviceTypeUnknown
}
