package domain

import "fmt"

// Immutable geographic coordinates in decimal degrees (latitude, longitude).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the coordinates fall inside the valid degree ranges.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidInput, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidInput, c.Lng)
	}
	return nil
}
