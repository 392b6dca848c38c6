package dto

import "time"

type GpsSampleRequest struct {
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
	RecordedAt *time.Time `json:"recorded_at"`
	SpeedKmh   *float64   `json:"speed_kmh"`
	Heading    *float64   `json:"heading"`
	AccuracyM  *float64   `json:"accuracy_m"`
}

type PositionResponse struct {
	AgentID    string    `json:"agent_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	AccuracyM  *float64  `json:"accuracy_m,omitempty"`
	IsVirtual  bool      `json:"is_virtual"`
	Stale      bool      `json:"stale"`
}

type CheckInRequest struct {
	CustomerID string     `json:"customer_id"`
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
	CheckInAt  *time.Time `json:"check_in_at"`
}

type CheckOutRequest struct {
	CheckOutAt *time.Time `json:"check_out_at"`
}

type VisitResponse struct {
	VisitID    string       `json:"visit_id"`
	AgentID    string       `json:"agent_id"`
	CustomerID string       `json:"customer_id"`
	CheckInAt  time.Time    `json:"check_in_at"`
	CheckOutAt *time.Time   `json:"check_out_at"`
	CheckIn    *Coordinates `json:"check_in"`
	Status     string       `json:"status"`
}
