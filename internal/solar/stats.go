package solar

import "time"

// Stats summarizes the irradiance of a series of fields.
type Stats struct {
	Day              time.Time
	Samples          int
	MaxIrradiance    float64
	MeanIrradiance   float64
	DaylightFraction float64 // share of cells with the sun above the horizon
}

// Summarize computes stats over fields.
func Summarize(day time.Time, fields []Field) Stats {
	s := Stats{Day: day, Samples: len(fields)}
	var sum float64
	var cells, lit int
	for _, f := range fields {
		for _, row := range f.Irradiance {
			for _, v := range row {
				sum += v
				cells++
				if v > 0 {
					lit++
				}
				if v > s.MaxIrradiance {
					s.MaxIrradiance = v
				}
			}
		}
	}
	if cells > 0 {
		s.MeanIrradiance = sum / float64(cells)
		s.DaylightFraction = float64(lit) / float64(cells)
	}
	return s
}
