package fps

import (
	"testing"
	"time"
)

func TestSetMaxFPS(t *testing.T) {
	second := float64(time.Second)
	tests := []struct {
		name string
		fps  float64
		want time.Duration
	}{
		{"disabled with zero", 0, 0},
		{"disabled with negative", -1, 0},
		{"ten", 10, 100 * time.Millisecond},
		{"default", DefaultMaxFPS, time.Duration(second / DefaultMaxFPS)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegulator(tt.fps)
			if got := r.Interval(); got != tt.want {
				t.Errorf("Interval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstFrameIsNotDelayed(t *testing.T) {
	r := NewRegulator(1)
	start := time.Now()
	r.StopTimer()
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first StopTimer blocked for %v", elapsed)
	}
}

func TestPacing(t *testing.T) {
	const n = 20
	const k = 5
	r := NewRegulator(n)

	start := time.Now()
	for i := 0; i < k; i++ {
		r.StopTimer()
		r.StartTimer()
	}
	elapsed := time.Since(start)
	if want := time.Duration(k-1) * time.Second / n; elapsed < want {
		t.Errorf("%d frames took %v, want at least %v", k, elapsed, want)
	}
}

func TestNoPacingWhenDisabled(t *testing.T) {
	r := NewRegulator(0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		r.StopTimer()
		r.StartTimer()
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unpaced frames took %v", elapsed)
	}
}

func TestStatistics(t *testing.T) {
	r := NewRegulator(0)
	if r.EffectiveFPS() != 0 || r.AverageTransitTime() != 0 {
		t.Fatal("statistics should be zero before the first frame")
	}
	r.StartTimer()
	time.Sleep(5 * time.Millisecond)
	r.StopTimer()
	if got := r.AverageTransitTime(); got < 5*time.Millisecond {
		t.Errorf("AverageTransitTime() = %v, want >= 5ms", got)
	}
	if r.EffectiveFPS() <= 0 {
		t.Error("EffectiveFPS() should be positive after a frame")
	}
}

func TestSetMaxFPSRestartsStatistics(t *testing.T) {
	r := NewRegulator(0)
	r.StartTimer()
	time.Sleep(200 * time.Millisecond)
	r.StopTimer()

	r.SetMaxFPS(0)
	for i := 0; i < 10; i++ {
		r.StopTimer()
		r.StartTimer()
		time.Sleep(time.Millisecond)
	}
	// 10 frames in about 10ms; the idle 200ms before the change must not count
	if got := r.EffectiveFPS(); got < 100 {
		t.Errorf("EffectiveFPS() = %.1f after a rate change, want >= 100", got)
	}
}
