package utils

import (
	"context"
	"time"

	"storefront-sampler/internal/types"
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	scrollStepMin = 50
	scrollStepMax = 200
	jitterPixels  = 1.5
)

// Humanizer produces randomized pauses and pointer/scroll trajectories
type Humanizer struct {
	rng   types.Rand
	sleep SleepFunc
}

// NewHumanizer creates a new humanizer. A nil sleep uses Sleep.
func NewHumanizer(rng types.Rand, sleep SleepFunc) *Humanizer {
	if sleep == nil {
		sleep = Sleep
	}
	return &Humanizer{
		rng:   rng,
		sleep: sleep,
	}
}

// Uniform draws a duration uniformly from [min, max]
func (h *Humanizer) Uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(h.rng.Float64()*float64(max-min))
}

// RandInt draws an integer uniformly from [lo, hi]
func (h *Humanizer) RandInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + h.rng.Intn(hi-lo+1)
}

// RandomPoint draws a point with both coordinates in [lo, hi]
func (h *Humanizer) RandomPoint(lo, hi int) types.Point {
	return types.Point{
		X: float64(h.RandInt(lo, hi)),
		Y: float64(h.RandInt(lo, hi)),
	}
}

// Pause suspends the caller for a duration drawn from [min, max]
func (h *Humanizer) Pause(ctx context.Context, min, max time.Duration) {
	d := h.Uniform(min, max)
	if d <= 0 {
		return
	}
	_ = h.sleep(ctx, d)
}

// Scroll performs the net scroll distance (positive is down) as a series of
// randomly sized wheel steps and returns the signed steps issued. A failing
// wheel event counts as a step that did not move the page.
func (h *Humanizer) Scroll(ctx context.Context, page types.Page, distance int) []int {
	direction := 1
	remaining := distance
	if distance < 0 {
		direction = -1
		remaining = -distance
	}

	var steps []int
	for remaining > 0 {
		step := min(scrollStepMax, remaining)
		if step < scrollStepMin {
			step = remaining
		}
		step = h.RandInt(min(scrollStepMin, step), step)

		_ = page.MouseWheel(ctx, 0, float64(direction*step))

		steps = append(steps, direction*step)
		remaining -= step
		h.Pause(ctx, 50*time.Millisecond, 250*time.Millisecond)
	}

	return steps
}

// Ease is the ease-in-out curve 3t² − 2t³
func Ease(t float64) float64 {
	return 3*t*t - 2*t*t*t
}

// MoveTo moves the pointer from start to end in steps eased, jittered moves
// and returns the positions visited. Failed moves are ignored.
func (h *Humanizer) MoveTo(ctx context.Context, page types.Page, start, end types.Point, steps int) []types.Point {
	if steps <= 0 {
		return nil
	}
	path := make([]types.Point, 0, steps)

	for i := 1; i <= steps; i++ {
		e := Ease(float64(i) / float64(steps))
		p := types.Point{
			X: start.X + (end.X-start.X)*e + h.jitter(),
			Y: start.Y + (end.Y-start.Y)*e + h.jitter(),
		}

		_ = page.MouseMove(ctx, p.X, p.Y)

		path = append(path, p)
		h.Pause(ctx, 5*time.Millisecond, 20*time.Millisecond)
	}

	return path
}

func (h *Humanizer) jitter() float64 {
	return -jitterPixels + h.rng.Float64()*2*jitterPixels
}
