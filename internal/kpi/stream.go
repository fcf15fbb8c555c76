package kpi

import "github.com/signalnine/acckpi/internal/acc"

// Stream evaluates a run one record at a time without knowing its end in
// advance. Extrema and jerk are folded in as records arrive; each steady-state
// window keeps a trailing buffer of candidate errors no older than the window
// length relative to the newest record. The result equals Evaluate on the
// same records.
type Stream struct {
	p      Params
	a      *accumulator
	cruise trailing
	follow trailing
}

func NewStream(p Params) (*Stream, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Stream{
		p:      p,
		a:      newAccumulator(p),
		cruise: trailing{window: p.CruiseWindow},
		follow: trailing{window: p.FollowWindow},
	}, nil
}

// Add folds the next record in. Records must arrive in log order.
func (s *Stream) Add(r acc.LogRecord) {
	s.a.add(&r)
	if e, ok := cruiseSpeedError(&r); ok {
		s.cruise.push(r.T, e)
	}
	if e, ok := followGapError(&r, s.p); ok {
		s.follow.push(r.T, e)
	}
	s.cruise.evict(r.T)
	s.follow.evict(r.T)
}

// Len is the number of records added so far.
func (s *Stream) Len() int { return s.a.n }

// Buffered is the number of candidate samples currently held for the
// steady-state windows.
func (s *Stream) Buffered() int { return len(s.cruise.samples) + len(s.follow.samples) }

// Finish returns the metrics of everything added so far. The stream may keep
// receiving records afterwards.
func (s *Stream) Finish() (Metrics, error) {
	if s.a.n == 0 {
		return Metrics{}, ErrEmptyInput
	}
	tEnd := s.a.tEnd
	return s.a.finish(s.cruise.since(tEnd), s.follow.since(tEnd)), nil
}

type sample struct {
	t   float64
	err float64
}

type trailing struct {
	window  float64
	samples []sample
}

func (w *trailing) push(t, err float64) {
	w.samples = append(w.samples, sample{t: t, err: err})
}

// evict drops samples that can no longer fall inside the window: the run end
// is at least latest, so anything before latest-window stays outside.
func (w *trailing) evict(latest float64) {
	from := latest - w.window
	i := 0
	for i < len(w.samples) && w.samples[i].t < from {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

func (w *trailing) since(tEnd float64) []float64 {
	from := tEnd - w.window
	var errs []float64
	for _, s := range w.samples {
		if s.t >= from {
			errs = append(errs, s.err)
		}
	}
	return errs
}
