package solar

// Record is the irradiance and luminance at a given geo location at a given
// time.
type Record struct {
	// Dimensions
	Timestamp int64 // unix milliseconds
	Latitude  float64
	Longitude float64

	// Metrics
	Irradiance float64 // W/m²
	Luminance  float64 // lux
}
