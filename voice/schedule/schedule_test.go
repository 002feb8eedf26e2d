package schedule

import (
	"math"
	"testing"
)

func TestStationaryTimeScales(t *testing.T) {
	tests := []struct {
		name      string
		timeScale float64
		want      []int
	}{
		{name: "unity", timeScale: 1, want: []int{1, 1, 1, 1}},
		{name: "double", timeScale: 2, want: []int{2, 2, 2, 2}},
		{name: "half", timeScale: 0.5, want: []int{0, 1, 0, 1}},
		{name: "triple", timeScale: 3, want: []int{3, 3, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Scheduler

			for i, want := range tt.want {
				d := s.Next(Step{Period: 160, NewPeriod: 160, TimeScale: tt.timeScale})
				if d.Count != want {
					t.Fatalf("frame %d: Count = %d, want %d", i, d.Count, want)
				}

				switch {
				case want == 0 && d.State != StateSkip:
					t.Fatalf("frame %d: State = %v, want skip", i, d.State)
				case want > 1 && d.State != StateRepeat:
					t.Fatalf("frame %d: State = %v, want repeat", i, d.State)
				case want == 1 && d.State != StateNormal:
					t.Fatalf("frame %d: State = %v, want normal", i, d.State)
				}
			}
		})
	}
}

func TestPitchScaleKeepsDuration(t *testing.T) {
	var s Scheduler

	// Raising the pitch by two halves the output hop, so every frame has to
	// be emitted twice.
	for i := range 5 {
		d := s.Next(Step{Period: 160, NewPeriod: 80, TimeScale: 1})
		if d.Count != 2 {
			t.Fatalf("frame %d: Count = %d, want 2", i, d.Count)
		}
	}
}

func TestLastFrameIsAlwaysEmitted(t *testing.T) {
	var s Scheduler

	d := s.Next(Step{Period: 160, NewPeriod: 160, TimeScale: 0.1, Last: true})
	if d.State != StateLast || !d.Finalize || d.Count != 1 {
		t.Fatalf("Decision = %+v, want one finalizing instance", d)
	}
}

func TestDurationConvergence(t *testing.T) {
	const (
		frames    = 100
		period    = 160
		frameSize = 3*period + 2
	)

	for _, pitch := range []float64{0.5, 1, 2} {
		for _, ts := range []float64{0.3, 0.5, 0.8, 1, 1.3, 2, 3.7, 5} {
			var s Scheduler

			hop := math.Round(period / pitch)
			newFrameSize := 2 * math.Round(frameSize/pitch/2)

			produced := 0.0
			lastCount := 0

			for i := range frames {
				step := Step{Period: period, NewPeriod: hop, TimeScale: ts, Last: i == frames-1}
				if step.Last {
					step.TailRequested, step.TailProduced = Tail(frameSize, period, int(newFrameSize), int(hop), 0, ts)
				}

				d := s.Next(step)
				produced += float64(d.Count) * hop

				if step.Last {
					produced += step.TailProduced
					lastCount = d.Count
				}
			}

			requested := s.Requested()
			if produced < requested-1e-9 {
				t.Fatalf("pscale %v tscale %v: produced %v < requested %v", pitch, ts, produced, requested)
			}

			if math.Abs(s.Total()-(requested-produced)) > 1e-6 {
				t.Fatalf("Total() = %v, want %v", s.Total(), requested-produced)
			}

			if lastCount > 1 && produced-requested >= hop {
				t.Fatalf("pscale %v tscale %v: overshoot %v >= hop %v", pitch, ts, produced-requested, hop)
			}

			want := ts * float64(frames*period+frameSize-period)
			if math.Abs(requested-want) > 1e-6 {
				t.Fatalf("Requested() = %v, want %v", requested, want)
			}
		}
	}
}

func TestTail(t *testing.T) {
	req, prod := Tail(482, 160, 242, 80, 2, 1)
	if req != 320 || prod != 162 {
		t.Fatalf("Tail() = %v, %v, want 320, 162", req, prod)
	}
}
