package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HerbHall/lanward/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		vendor   string
		hostname string
		want     models.DeviceType
	}{
		{"iphone hostname", "Apple, Inc.", "Johns-iPhone", models.DeviceTypePhone},
		{"samsung vendor", "Samsung Electronics Co.,Ltd", "", models.DeviceTypePhone},
		{"ipad", "Apple, Inc.", "family-ipad", models.DeviceTypeTablet},
		{"roku", "Roku, Inc", "", models.DeviceTypeSmartTV},
		{"chromecast hostname", "Google, Inc.", "Chromecast-Living-Room", models.DeviceTypeSmartTV},
		{"playstation", "Sony Interactive Entertainment Inc.", "PS5", models.DeviceTypeGaming},
		{"nintendo", "Nintendo Co.,Ltd", "", models.DeviceTypeGaming},
		{"raspberry pi", "Raspberry Pi Foundation", "", models.DeviceTypeIoT},
		{"espressif sensor", "Espressif Inc.", "esp-kitchen", models.DeviceTypeIoT},
		{"macbook hostname", "Apple, Inc.", "Alexs-MacBook-Pro", models.DeviceTypeLaptop},
		{"dell desktop", "Dell Inc.", "", models.DeviceTypeDesktop},
		{"unknown", "Frobnicorp", "host-42", models.DeviceTypeUnknown},
		{"empty", "", "", models.DeviceTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.vendor, tt.hostname))
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// An Apple TV is both "apple" (desktop-adjacent) and a TV; the TV rule
	// is earlier and must win.
	assert.Equal(t, models.DeviceTypeSmartTV, Classify("Apple, Inc.", "Apple-TV"))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	assert.Equal(t, models.DeviceTypePhone, Classify("SAMSUNG ELECTRONICS", ""))
}
