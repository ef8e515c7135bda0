package geo

import (
	"errors"
	"fmt"
	"math"
)

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewCoordinates constructs validated coordinates.
func NewCoordinates(latitude, longitude float64) (Coordinates, error) {
	c := Coordinates{Latitude: latitude, Longitude: longitude}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// Validate checks the WGS84 ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// Format renders "lat, lng" with the given number of decimals.
func (c Coordinates) Format(decimals int) string {
	return fmt.Sprintf("%.*f, %.*f", decimals, c.Latitude, decimals, c.Longitude)
}

// String renders the page precision (6 decimals).
func (c Coordinates) String() string {
	return c.Format(6)
}
