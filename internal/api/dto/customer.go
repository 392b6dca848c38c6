package dto

import "time"

type CustomerResponse struct {
	CustomerID         string     `json:"customer_id"`
	Name               string     `json:"name"`
	Lat                *float64   `json:"lat"`
	Lng                *float64   `json:"lng"`
	VisitMinutes       int        `json:"visit_minutes"`
	Priority           int        `json:"priority"`
	VisitFrequencyDays int        `json:"visit_frequency_days"`
	AvgOrderValue      float64    `json:"avg_order_value"`
	LastVisitAt        *time.Time `json:"last_visit_at"`
}

type ListCustomersResponse struct {
	Customers []CustomerResponse `json:"customers"`
}
