package logreader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/signalnine/acckpi/internal/acc"
)

const (
	ColT            = "t_s"
	ColMode         = "mode"
	ColLeadValid    = "lead_valid"
	ColLeadDistance = "lead_distance_m"
	ColTTC          = "ttc_s"
	ColACmd         = "a_cmd_mps2"
	ColEgoSpeed     = "ego_speed_mps"
	ColVSet         = "v_set_mps"
	ColLeadRelSpeed = "lead_rel_speed_mps"
)

// Columns is the canonical column order used by Write.
var Columns = []string{
	ColT, ColMode, ColLeadValid, ColLeadDistance, ColTTC,
	ColACmd, ColEgoSpeed, ColVSet, ColLeadRelSpeed,
}

var requiredColumns = []string{ColT, ColMode, ColACmd}

var (
	ErrMissingColumn    = errors.New("missing required column")
	ErrMissingValue     = errors.New("missing required value")
	ErrNonMonotonicTime = errors.New("time is decreasing")
)

// ParseError locates a failure in the input. Line is 1-based; zero means the
// error is not tied to a row (e.g. a missing header column).
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func ReadFile(path string) ([]acc.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	defer f.Close()
	recs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading log %s: %w", path, err)
	}
	return recs, nil
}

// Read decodes a header-indexed CSV log. Columns may appear in any order and
// unknown columns are ignored. Optional cells that are empty or unparsable
// read as NaN.
func Read(r io.Reader) ([]acc.LogRecord, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &ParseError{Column: col, Err: ErrMissingColumn}
		}
	}

	var recs []acc.LogRecord
	prevT := math.Inf(-1)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rec, err := decodeRow(row, idx, line)
		if err != nil {
			return nil, err
		}
		if rec.T < prevT {
			return nil, &ParseError{Line: line, Column: ColT, Err: ErrNonMonotonicTime}
		}
		prevT = rec.T
		recs = append(recs, rec)
	}
	return recs, nil
}

func decodeRow(row []string, idx map[string]int, line int) (acc.LogRecord, error) {
	cell := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	required := func(col string) (float64, error) {
		s := cell(col)
		if s == "" {
			return 0, &ParseError{Line: line, Column: col, Err: ErrMissingValue}
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &ParseError{Line: line, Column: col, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ParseError{Line: line, Column: col, Err: fmt.Errorf("non-finite value %q", s)}
		}
		return v, nil
	}
	optional := func(col string) float64 {
		v, err := strconv.ParseFloat(cell(col), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	var rec acc.LogRecord
	var err error
	if rec.T, err = required(ColT); err != nil {
		return rec, err
	}
	if rec.ACmdMps2, err = required(ColACmd); err != nil {
		return rec, err
	}
	code, err := required(ColMode)
	if err != nil {
		return rec, err
	}
	if code != math.Trunc(code) {
		return rec, &ParseError{Line: line, Column: ColMode, Err: fmt.Errorf("%w: %v", acc.ErrInvalidMode, code)}
	}
	if rec.Mode, err = acc.ParseMode(int(code)); err != nil {
		return rec, &ParseError{Line: line, Column: ColMode, Err: err}
	}

	if lv := optional(ColLeadValid); !math.IsNaN(lv) {
		rec.LeadValid = lv != 0
	}
	rec.LeadDistanceM = optional(ColLeadDistance)
	rec.TTCS = optional(ColTTC)
	rec.EgoSpeedMps = optional(ColEgoSpeed)
	rec.VSetMps = optional(ColVSet)
	rec.LeadRelSpeedMps = optional(ColLeadRelSpeed)
	return rec, nil
}

// Write encodes records with the canonical header. Non-finite values are
// written as inf, -inf and nan.
func Write(w io.Writer, recs []acc.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range recs {
		lead := "0"
		if r.LeadValid {
			lead = "1"
		}
		row := []string{
			FormatFloat(r.T),
			strconv.Itoa(int(r.Mode)),
			lead,
			FormatFloat(r.LeadDistanceM),
			FormatFloat(r.TTCS),
			FormatFloat(r.ACmdMps2),
			FormatFloat(r.EgoSpeedMps),
			FormatFloat(r.VSetMps),
			FormatFloat(r.LeadRelSpeedMps),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatFloat renders v the way the simulator does: shortest round-trip
// decimal, with inf/-inf/nan for non-finite values.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
