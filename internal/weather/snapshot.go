package weather

import "math"

// Snapshot is a single current-conditions reading for a location. It is
// replaced wholesale on each successful fetch; there is no incremental
// merge.
type Snapshot struct {
	// TemperatureF is the primary display temperature.
	TemperatureF int    `json:"temperature_f"`
	TemperatureC int    `json:"temperature_c"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	City         string `json:"city"`
	Humidity     int    `json:"humidity"`
	WindKph      int    `json:"wind_kph"`
}

// fahrenheitFromCelsius converts a raw Celsius reading, rounding the
// Celsius value to a whole degree before converting and rounding again.
// Rounding before conversion loses up to ~0.9°F of precision but keeps
// the two displayed values consistent with each other.
func fahrenheitFromCelsius(rawCelsius float64) (celsius, fahrenheit int) {
	c := math.Round(rawCelsius)
	f := math.Round(c*9/5 + 32)
	return int(c), int(f)
}

// windKph converts a wind speed in m/s to a rounded km/h figure.
func windKph(metersPerSecond float64) int {
	return int(math.Round(metersPerSecond * 3.6))
}

// iconNames maps upstream icon codes to the client icon set.
var iconNames = map[string]string{
	"01d": "sunny",
	"01n": "moon",
	"02d": "partly-sunny",
	"02n": "partly-sunny-outline",
	"03d": "cloud",
	"03n": "cloud",
	"04d": "cloudy",
	"04n": "cloudy",
	"09d": "rainy",
	"09n": "rainy",
	"10d": "rainy",
	"10n": "rainy",
	"11d": "thunderstorm",
	"11n": "thunderstorm",
	"13d": "snow",
	"13n": "snow",
	"50d": "water",
	"50n": "water",
}

// IconName maps an upstream icon code to a client icon name.
func IconName(code string) string {
	if name, ok := iconNames[code]; ok {
		return name
	}
	return "partly-sunny"
}
