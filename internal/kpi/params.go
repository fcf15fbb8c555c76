package kpi

import (
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid evaluation parameters")

// Params holds every threshold and window the evaluator branches on.
type Params struct {
	Ts             float64 `yaml:"ts_s" json:"ts_s"`
	TTCWarn        float64 `yaml:"ttc_warn_s" json:"ttc_warn_s"`
	TGap           float64 `yaml:"t_gap_s" json:"t_gap_s"`
	D0             float64 `yaml:"d0_m" json:"d0_m"`
	CruiseWindow   float64 `yaml:"cruise_window_s" json:"cruise_window_s"`
	FollowWindow   float64 `yaml:"follow_window_s" json:"follow_window_s"`
	FollowMinSpeed float64 `yaml:"follow_min_speed_mps" json:"follow_min_speed_mps"`
}

func DefaultParams() Params {
	return Params{
		Ts:             0.02,
		TTCWarn:        3.0,
		TGap:           1.5,
		D0:             3.0,
		CruiseWindow:   2.0,
		FollowWindow:   5.0,
		FollowMinSpeed: 0.5,
	}
}

func (p Params) Validate() error {
	if !(p.Ts > 0) {
		return fmt.Errorf("%w: ts_s must be positive, got %v", ErrInvalidParams, p.Ts)
	}
	if !(p.CruiseWindow >= 0) {
		return fmt.Errorf("%w: cruise_window_s must not be negative, got %v", ErrInvalidParams, p.CruiseWindow)
	}
	if !(p.FollowWindow >= 0) {
		return fmt.Errorf("%w: follow_window_s must not be negative, got %v", ErrInvalidParams, p.FollowWindow)
	}
	if !(p.FollowMinSpeed >= 0) {
		return fmt.Errorf("%w: follow_min_speed_mps must not be negative, got %v", ErrInvalidParams, p.FollowMinSpeed)
	}
	return nil
}
