package model

import "time"

// SOSSignal is the emergency flag raised from the patient dashboard.
// Timestamp is milliseconds since the Unix epoch.
type SOSSignal struct {
	Active    bool   `json:"active"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Patient   string `json:"patient,omitempty"`
}

// Time converts Timestamp to local time.
func (s SOSSignal) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}
