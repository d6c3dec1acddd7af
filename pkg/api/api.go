// Package api holds the JSON shapes exchanged with the nurse backend.
package api

import "time"

// Push event names.
const (
	EventFallAlert    = "fall_alert"
	EventVitalsUpdate = "vitals_update"
	EventPiStatus     = "pi_status"
)

type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the raw reply. ShowList is the older name for Plots and is still
// sent by some backends.
type ChatResponse struct {
	Answer   *string  `json:"answer"`
	Plots    []string `json:"plots,omitempty"`
	ShowList []string `json:"show_list,omitempty"`
}

type Alert struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
}

type AlertList struct {
	Total  int     `json:"total" yaml:"total"`
	Alerts []Alert `json:"alerts" yaml:"alerts"`
}

type BloodPressure struct {
	Systolic  float64 `json:"systolic" yaml:"systolic"`
	Diastolic float64 `json:"diastolic" yaml:"diastolic"`
}

type Vitals struct {
	HeartRate       float64       `json:"heart_rate" yaml:"heart_rate"`
	SpO2            float64       `json:"spo2" yaml:"spo2"`
	BloodPressure   BloodPressure `json:"blood_pressure" yaml:"blood_pressure"`
	SkinTemperature float64       `json:"skin_temperature" yaml:"skin_temperature"`
	Timestamp       float64       `json:"timestamp" yaml:"timestamp"`
	DateTime        string        `json:"datetime" yaml:"datetime"`
	PatientID       string        `json:"patient_id" yaml:"patient_id"`
}

type PiStatus struct {
	Connected bool   `json:"connected" yaml:"connected"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Frame is the websocket envelope for push events.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
