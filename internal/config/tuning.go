package config

import (
	"bytes"
	"errors"
	"field-route-service/internal/monitoring"
	"field-route-service/internal/services"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning is the hot-reloadable part of the configuration.
type Tuning struct {
	Planner          services.PlannerConfig
	MaxStopsPerRoute int
	Thresholds       monitoring.Thresholds
}

func DefaultTuning() Tuning {
	return Tuning{
		Planner:    services.DefaultPlannerConfig(),
		Thresholds: monitoring.DefaultThresholds(),
	}
}

type tuningFile struct {
	Planner plannerFile `yaml:"planner"`
	Alerts  alertsFile  `yaml:"alerts"`
}

type plannerFile struct {
	FrequencyWeight        *float64 `yaml:"frequency_weight"`
	OrderValueWeight       *float64 `yaml:"order_value_weight"`
	RecencyWeight          *float64 `yaml:"recency_weight"`
	PriorityTopK           *int     `yaml:"priority_top_k"`
	RecencyHorizonDays     *int     `yaml:"recency_horizon_days"`
	MinutesPerKm           *float64 `yaml:"minutes_per_km"`
	DefaultVisitMinutes    *int     `yaml:"default_visit_minutes"`
	MaxIterations          *int     `yaml:"max_iterations"`
	MaxStopsPerRoute       *int     `yaml:"max_stops_per_route"`
	EfficiencyPenaltyPerKm *float64 `yaml:"efficiency_penalty_per_km"`
}

type alertsFile struct {
	DeviationMeters      *float64 `yaml:"deviation_meters"`
	DeviationHighMeters  *float64 `yaml:"deviation_high_meters"`
	DelayMinutes         *float64 `yaml:"delay_minutes"`
	DelayHighMinutes     *float64 `yaml:"delay_high_minutes"`
	ProximityMeters      *float64 `yaml:"proximity_meters"`
	ExtendedVisitMinutes *float64 `yaml:"extended_visit_minutes"`
	Cooldown             *string  `yaml:"cooldown"`
}

// LoadTuning reads a tuning file. An empty path yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("load tuning %q: %w", path, err)
	}
	t, err := ParseTuning(raw)
	if err != nil {
		return Tuning{}, fmt.Errorf("load tuning %q: %w", path, err)
	}
	return t, nil
}

// ParseTuning applies the YAML overrides in raw on top of the defaults.
func ParseTuning(raw []byte) (Tuning, error) {
	var f tuningFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("parse tuning: %w", err)
	}

	t := DefaultTuning()
	p := &t.Planner
	setFloat(&p.Weights.Frequency, f.Planner.FrequencyWeight)
	setFloat(&p.Weights.OrderValue, f.Planner.OrderValueWeight)
	setFloat(&p.Weights.Recency, f.Planner.RecencyWeight)
	setInt(&p.PriorityTopK, f.Planner.PriorityTopK)
	setInt(&p.RecencyHorizonDays, f.Planner.RecencyHorizonDays)
	setFloat(&p.TimeModel.MinutesPerKm, f.Planner.MinutesPerKm)
	setInt(&p.TimeModel.DefaultVisitMinutes, f.Planner.DefaultVisitMinutes)
	setInt(&p.MaxIterations, f.Planner.MaxIterations)
	setFloat(&p.EfficiencyPenaltyPerKm, f.Planner.EfficiencyPenaltyPerKm)
	setInt(&t.MaxStopsPerRoute, f.Planner.MaxStopsPerRoute)

	th := &t.Thresholds
	setFloat(&th.DeviationMeters, f.Alerts.DeviationMeters)
	setFloat(&th.DeviationHighMeters, f.Alerts.DeviationHighMeters)
	setFloat(&th.DelayMinutes, f.Alerts.DelayMinutes)
	setFloat(&th.DelayHighMinutes, f.Alerts.DelayHighMinutes)
	setFloat(&th.ProximityMeters, f.Alerts.ProximityMeters)
	setFloat(&th.ExtendedVisitMinutes, f.Alerts.ExtendedVisitMinutes)
	if f.Alerts.Cooldown != nil {
		d, err := time.ParseDuration(*f.Alerts.Cooldown)
		if err != nil {
			return Tuning{}, fmt.Errorf("parse tuning: alerts.cooldown: %w", err)
		}
		th.Cooldown = d
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	p := t.Planner
	w := p.Weights
	var errs []error
	if w.Frequency < 0 || w.OrderValue < 0 || w.Recency < 0 {
		errs = append(errs, errors.New("priority weights must not be negative"))
	}
	if w.Frequency+w.OrderValue+w.Recency == 0 {
		errs = append(errs, errors.New("priority weights must not all be zero"))
	}
	if p.PriorityTopK < 0 || p.RecencyHorizonDays < 0 || p.MaxIterations < 0 || t.MaxStopsPerRoute < 0 {
		errs = append(errs, errors.New("planner counts must not be negative"))
	}
	if p.TimeModel.MinutesPerKm < 0 || p.TimeModel.DefaultVisitMinutes < 0 || p.EfficiencyPenaltyPerKm < 0 {
		errs = append(errs, errors.New("time model values must not be negative"))
	}

	th := t.Thresholds
	if th.DeviationMeters < 0 || th.DelayMinutes < 0 || th.ProximityMeters < 0 ||
		th.ExtendedVisitMinutes < 0 || th.Cooldown < 0 {
		errs = append(errs, errors.New("alert thresholds must not be negative"))
	}
	if th.DeviationHighMeters < th.DeviationMeters {
		errs = append(errs, errors.New("deviation_high_meters must be >= deviation_meters"))
	}
	if th.DelayHighMinutes < th.DelayMinutes {
		errs = append(errs, errors.New("delay_high_minutes must be >= delay_minutes"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
