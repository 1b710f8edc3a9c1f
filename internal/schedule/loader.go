package schedule

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a schedule from the given reader with strict field validation.
// Unknown fields in the YAML will cause an error.
func Load(r io.Reader) (*Schedule, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var sched Schedule
	if err := decoder.Decode(&sched); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty schedule file")
		}
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}

	if err := sched.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	return &sched, nil
}

// LoadFile loads a schedule from the given file path.
func LoadFile(path string) (*Schedule, error) {
	f, err := os.Open(path) //nolint:gosec // File path comes from user input, expected behavior
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sched, err := Load(f)
	if err != nil {
		return nil, err
	}

	return sched, nil
}

// Default returns the built-in caption timeline used when no schedule file
// is supplied. The intervals are non-overlapping and cover a 15 second take.
func Default() *Schedule {
	return &Schedule{
		Meta: Meta{
			Name:        "default",
			Description: "Built-in 15 second caption timeline",
		},
		Overlays: []Overlay{
			{
				Text:       "Get ready...",
				Foreground: "#FFFFFF",
				Background: "#00000099",
				StartMs:    0,
				DurationMs: 3000,
			},
			{
				Text:       "Say hello to the camera!",
				Foreground: "#FFD700",
				Background: "#00000099",
				StartMs:    3500,
				DurationMs: 4500,
			},
			{
				Text:       "Show us your best side",
				Foreground: "#FFFFFF",
				Background: "#00000099",
				StartMs:    8500,
				DurationMs: 3500,
			},
			{
				Text:       "Big finish!",
				Foreground: "#FF6B6B",
				Background: "#00000099",
				StartMs:    12500,
				DurationMs: 2500,
			},
		},
	}
}
