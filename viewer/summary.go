package viewer

import (
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// summaryWindow is how many recent frames the summary covers.
const summaryWindow = 3600

// Summary describes recent frame timings and sizes.
type Summary struct {
	Frames          int
	MeanFrameTime   time.Duration
	StdDevFrameTime time.Duration
	MaxFrameTime    time.Duration
	MeanPoints      float64
}

// timings keeps the last n frame times and point counts in a ring.
type timings struct {
	elapsed []float64
	points  []float64
	next    int
	full    bool
}

func newTimings(n int) *timings {
	return &timings{
		elapsed: make([]float64, n),
		points:  make([]float64, n),
	}
}

func (t *timings) add(elapsed time.Duration, points int) {
	t.elapsed[t.next] = float64(elapsed)
	t.points[t.next] = float64(points)
	t.next++
	if t.next == len(t.elapsed) {
		t.next = 0
		t.full = true
	}
}

func (t *timings) samples() (elapsed, points []float64) {
	if t.full {
		return t.elapsed, t.points
	}
	return t.elapsed[:t.next], t.points[:t.next]
}

func (t *timings) summary() Summary {
	elapsed, points := t.samples()
	s := Summary{Frames: len(elapsed)}
	if len(elapsed) == 0 {
		return s
	}
	s.MeanFrameTime = time.Duration(stat.Mean(elapsed, nil))
	if len(elapsed) > 1 {
		s.StdDevFrameTime = time.Duration(stat.StdDev(elapsed, nil))
	}
	s.MaxFrameTime = time.Duration(lo.Max(elapsed))
	s.MeanPoints = stat.Mean(points, nil)
	return s
}

// Summary returns timing statistics over the most recent frames.
func (v *Viewer) Summary() Summary {
	return v.timings.summary()
}

func (v *Viewer) logSummary() {
	s := v.Summary()
	if s.Frames == 0 {
		v.logger.Info("no frames rendered")
		return
	}
	v.logger.Infow("frame summary",
		"frames", v.frames,
		"window", s.Frames,
		"mean", s.MeanFrameTime,
		"stddev", s.StdDevFrameTime,
		"max", s.MaxFrameTime,
		"mean_points", s.MeanPoints,
	)
}
