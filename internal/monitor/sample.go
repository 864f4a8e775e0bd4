package monitor

import (
	"time"

	"github.com/d21d3q/goco2mon/internal/report"
)

// Sample is one assembled measurement. CO2 and temperature arrive in
// separate reports; a sample is complete once both are present.
// Humidity is reported by some hardware revisions only and is carried
// opportunistically.
type Sample struct {
	Time time.Time

	CO2    int // ppm
	HasCO2 bool

	Temperature    float64 // degrees Celsius
	HasTemperature bool

	Humidity    float64 // percent relative humidity
	HasHumidity bool
}

// Complete reports whether both mandatory channels are populated.
func (s Sample) Complete() bool {
	return s.HasCO2 && s.HasTemperature
}

// merge folds one decoded item into the in-progress sample. Items on
// unknown channels are ignored without error.
func (s *Sample) merge(item report.Item) {
	switch item.Code {
	case report.CodeCO2:
		s.CO2 = item.PPM()
		s.HasCO2 = true
	case report.CodeTemperature:
		s.Temperature = item.Celsius()
		s.HasTemperature = true
	case report.CodeHumidity:
		s.Humidity = item.RH()
		s.HasHumidity = true
	}
}
