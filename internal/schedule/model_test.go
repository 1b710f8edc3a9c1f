package schedule

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_ActiveAt(t *testing.T) {
	sched := &Schedule{
		Meta: Meta{Name: "test"},
		Overlays: []Overlay{
			{Text: "first", Foreground: "#FFFFFF", Background: "#00000080", StartMs: 0, DurationMs: 5000},
			{Text: "second", Foreground: "#FFFFFF", Background: "#00000080", StartMs: 6000, DurationMs: 2000},
		},
	}

	tests := []struct {
		name     string
		elapsed  time.Duration
		wantText string
		wantOK   bool
	}{
		{name: "start of first interval", elapsed: 0, wantText: "first", wantOK: true},
		{name: "inside first interval", elapsed: 2500 * time.Millisecond, wantText: "first", wantOK: true},
		{name: "exclusive end of first interval", elapsed: 5000 * time.Millisecond, wantOK: false},
		{name: "gap between intervals", elapsed: 5500 * time.Millisecond, wantOK: false},
		{name: "start of second interval", elapsed: 6000 * time.Millisecond, wantText: "second", wantOK: true},
		{name: "after all intervals", elapsed: 9000 * time.Millisecond, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ok := sched.ActiveAt(tt.elapsed)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, o)
				assert.Equal(t, tt.wantText, o.Text)
			}
		})
	}
}

func TestSchedule_ActiveAt_OverlapEarliestDeclaredWins(t *testing.T) {
	sched := &Schedule{
		Meta: Meta{Name: "test"},
		Overlays: []Overlay{
			{Text: "early", Foreground: "#FFFFFF", Background: "#00000080", StartMs: 0, DurationMs: 3000},
			{Text: "late", Foreground: "#FFFFFF", Background: "#00000080", StartMs: 1000, DurationMs: 3000},
		},
	}

	o, ok := sched.ActiveAt(2000 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "early", o.Text)

	// Past the first interval, the second takes over.
	o, ok = sched.ActiveAt(3500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "late", o.Text)
}

func TestOverlay_OpacityAt(t *testing.T) {
	o := Overlay{Text: "x", Foreground: "#FFFFFF", Background: "#00000080", StartMs: 0, DurationMs: 5000}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{name: "interval start", elapsed: 0, want: 0},
		{name: "end of fade-in", elapsed: 500 * time.Millisecond, want: 1},
		{name: "quarter fade-in", elapsed: 250 * time.Millisecond, want: 0.5},
		{name: "middle", elapsed: 2500 * time.Millisecond, want: 1},
		{name: "start of fade-out", elapsed: 4500 * time.Millisecond, want: 1},
		{name: "quarter fade-out", elapsed: 4750 * time.Millisecond, want: 0.5},
		{name: "interval end", elapsed: 5000 * time.Millisecond, want: 0},
		{name: "before interval", elapsed: -time.Millisecond, want: 0},
		{name: "after interval", elapsed: 6000 * time.Millisecond, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, o.OpacityAt(tt.elapsed), 1e-9)
		})
	}
}

func TestOverlay_OpacityAt_ShapeAndBounds(t *testing.T) {
	o := Overlay{Text: "x", Foreground: "#FFFFFF", Background: "#00000080", StartMs: 0, DurationMs: 4000}

	prev := -1.0
	rising := true
	for ms := 0; ms <= 4000; ms += 50 {
		op := o.OpacityAt(time.Duration(ms) * time.Millisecond)
		assert.GreaterOrEqual(t, op, 0.0)
		assert.LessOrEqual(t, op, 1.0)
		if rising && op < prev {
			rising = false
		}
		if !rising {
			// Once the curve starts falling it must never rise again.
			assert.LessOrEqual(t, op, prev)
		}
		prev = op
	}
}

func TestOverlay_Validate(t *testing.T) {
	tests := []struct {
		name    string
		overlay Overlay
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid overlay",
			overlay: Overlay{Text: "hi", Foreground: "#FFFFFF", Background: "#00000080", DurationMs: 1000},
			wantErr: false,
		},
		{
			name:    "empty text",
			overlay: Overlay{Text: "  ", Foreground: "#FFFFFF", Background: "#00000080", DurationMs: 1000},
			wantErr: true,
			errMsg:  "text must be non-empty",
		},
		{
			name:    "zero duration",
			overlay: Overlay{Text: "hi", Foreground: "#FFFFFF", Background: "#00000080", DurationMs: 0},
			wantErr: true,
			errMsg:  "duration_ms must be greater than zero",
		},
		{
			name:    "bad foreground",
			overlay: Overlay{Text: "hi", Foreground: "white", Background: "#00000080", DurationMs: 1000},
			wantErr: true,
			errMsg:  "foreground",
		},
		{
			name:    "bad background",
			overlay: Overlay{Text: "hi", Foreground: "#FFFFFF", Background: "#XYZ", DurationMs: 1000},
			wantErr: true,
			errMsg:  "background",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.overlay.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedule_Validate(t *testing.T) {
	valid := Overlay{Text: "hi", Foreground: "#FFFFFF", Background: "#00000080", DurationMs: 1000}

	t.Run("valid schedule", func(t *testing.T) {
		s := &Schedule{Meta: Meta{Name: "ok"}, Overlays: []Overlay{valid}}
		assert.NoError(t, s.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		s := &Schedule{Overlays: []Overlay{valid}}
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name must be non-empty")
	})

	t.Run("no overlays", func(t *testing.T) {
		s := &Schedule{Meta: Meta{Name: "ok"}}
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one overlay")
	})

	t.Run("overlapping overlays still validate", func(t *testing.T) {
		a := valid
		b := valid
		b.StartMs = 500
		s := &Schedule{Meta: Meta{Name: "ok"}, Overlays: []Overlay{a, b}}
		assert.NoError(t, s.Validate())
	})
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{name: "rgb", in: "#FFD700", want: color.NRGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}},
		{name: "rgba", in: "#00000080", want: color.NRGBA{A: 0x80}},
		{name: "lowercase", in: "#a0b1c2", want: color.NRGBA{R: 0xa0, G: 0xb1, B: 0xc2, A: 0xff}},
		{name: "missing hash", in: "FFD700", wantErr: true},
		{name: "wrong length", in: "#FFF", wantErr: true},
		{name: "bad digits", in: "#GGGGGG", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
