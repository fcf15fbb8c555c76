package acc

import (
	"errors"
	"fmt"
	"math"
)

// Mode is the controller operating mode logged at each tick.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeCruise
	ModeFollow
	ModeAEB
	ModeFault
)

var ErrInvalidMode = errors.New("invalid mode")

var modeNames = [...]string{
	ModeOff:    "OFF",
	ModeCruise: "CRUISE",
	ModeFollow: "FOLLOW",
	ModeAEB:    "AEB",
	ModeFault:  "FAULT",
}

func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func (m Mode) Valid() bool {
	return m <= ModeFault
}

// ParseMode converts the integer code written in logs to a Mode.
func ParseMode(code int) (Mode, error) {
	if code < int(ModeOff) || code > int(ModeFault) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, code)
	}
	return Mode(code), nil
}

// LogRecord is one simulation tick. Optional values that are absent are NaN.
type LogRecord struct {
	T               float64
	Mode            Mode
	LeadValid       bool
	LeadDistanceM   float64
	TTCS            float64
	ACmdMps2        float64
	EgoSpeedMps     float64
	VSetMps         float64
	LeadRelSpeedMps float64
}

// HasLeadDistance reports whether the record carries a usable distance to a
// tracked lead object.
func (r *LogRecord) HasLeadDistance() bool {
	return r.LeadValid && isFinite(r.LeadDistanceM)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
