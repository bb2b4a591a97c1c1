// Package segment defines the contract with the background-removal
// collaborator and the progress reporting that goes with it.
//
// The segmentation model itself is external. A Segmenter receives the encoded
// upload and returns an encoded cutout whose alpha channel marks the subject.
package segment

import (
	"context"
	"math"
	"sync"
)

// ProgressFunc receives completion as a fraction in [0,1].
type ProgressFunc func(fraction float64)

// Options configures one segmentation call.
type Options struct {
	// Model selects the collaborator's model, e.g. "isnet". Empty means
	// the collaborator's default.
	Model string

	// Format is the MIME type of the returned cutout. Empty means image/png.
	Format string

	// Quality is the output quality in (0,1] for lossy formats.
	Quality float64

	// Progress is called as work advances. May be nil.
	Progress ProgressFunc
}

// OutputFormat returns Format or the image/png default.
func (o Options) OutputFormat() string {
	if o.Format == "" {
		return "image/png"
	}
	return o.Format
}

func (o Options) report(fraction float64) {
	if o.Progress != nil {
		o.Progress(fraction)
	}
}

// Segmenter removes the background from an encoded image.
type Segmenter interface {
	Segment(ctx context.Context, blob []byte, opts Options) ([]byte, error)
}

// FractionReporter normalizes raw progress values before passing them on.
//
// Values are clamped to [0,1], NaN is dropped and progress never moves
// backwards. It is safe for concurrent use.
type FractionReporter struct {
	mu   sync.Mutex
	last float64
	fn   ProgressFunc
}

// NewFractionReporter wraps fn. A nil fn discards updates.
func NewFractionReporter(fn ProgressFunc) *FractionReporter {
	return &FractionReporter{last: -1, fn: fn}
}

// Report forwards fraction if it advances progress.
func (r *FractionReporter) Report(fraction float64) {
	if math.IsNaN(fraction) {
		return
	}
	fraction = math.Max(0, math.Min(1, fraction))

	r.mu.Lock()
	if fraction <= r.last {
		r.mu.Unlock()
		return
	}
	r.last = fraction
	fn := r.fn
	r.mu.Unlock()

	if fn != nil {
		fn(fraction)
	}
}

// Func returns Report as a ProgressFunc.
func (r *FractionReporter) Func() ProgressFunc { return r.Report }

// Last returns the most recent forwarded fraction, or 0 if none.
func (r *FractionReporter) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return math.Max(0, r.last)
}

// StageReporter adapts the stage/current/total callback some collaborators
// emit. Stages are weighted equally in the order they are first seen; the
// fraction within a stage is current/total.
type StageReporter struct {
	mu     sync.Mutex
	stages []string
	total  int
	next   ProgressFunc
}

// NewStageReporter expects the given number of stages. A count below one is
// treated as one.
func NewStageReporter(stages int, next ProgressFunc) *StageReporter {
	if stages < 1 {
		stages = 1
	}
	return &StageReporter{total: stages, next: next}
}

// Report converts one stage update to a fraction.
func (s *StageReporter) Report(stage string, current, total int64) {
	s.mu.Lock()
	idx := -1
	for i, name := range s.stages {
		if name == stage {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.stages = append(s.stages, stage)
		idx = len(s.stages) - 1
	}
	stages := s.total
	if len(s.stages) > stages {
		stages = len(s.stages)
	}
	s.mu.Unlock()

	within := 0.0
	if total > 0 {
		within = math.Max(0, math.Min(1, float64(current)/float64(total)))
	}
	if s.next != nil {
		s.next((float64(idx) + within) / float64(stages))
	}
}

// AlphaPassthrough returns its input unchanged. It serves inputs that are
// already cutouts and deployments with no segmentation endpoint.
type AlphaPassthrough struct{}

// Segment reports completion and returns blob.
func (AlphaPassthrough) Segment(ctx context.Context, blob []byte, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.report(0)
	opts.report(1)
	return blob, nil
}
