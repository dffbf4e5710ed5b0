package model

import (
	"fmt"
	"math"
)

// Location is where the requester was when the case was triggered.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Validate rejects coordinates outside the WGS84 range.
func (l *Location) Validate() error {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", l.Lat)
	}
	if math.IsNaN(l.Lng) || l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", l.Lng)
	}
	return nil
}
