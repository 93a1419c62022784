package model

import (
	"fmt"
	"strings"
)

// Direction distinguishes the two ordered stop lists of a service.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

// Directions lists every direction in a stable order.
var Directions = []Direction{Outbound, Inbound}

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection converts a textual direction. "O", "I", "0" and "1" are
// accepted as short forms.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound", "out", "o", "0":
		return Outbound, nil
	case "inbound", "in", "i", "1":
		return Inbound, nil
	}
	return Outbound, fmt.Errorf("unknown direction %q", s)
}

// Service is a route identifier as published by the operator.
type Service struct {
	ID   string
	Name string
}

// Stop is a physical location served by one or more services.
type Stop struct {
	ID       string
	Name     string
	Lat      float64
	Lon      float64
	Services []string
}

// Serves reports whether the stop is visited by the given service.
func (s Stop) Serves(service string) bool {
	for _, id := range s.Services {
		if id == service {
			return true
		}
	}
	return false
}

// StopIDs returns the identifiers of stops in order.
func StopIDs(stops []Stop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.ID
	}
	return ids
}
