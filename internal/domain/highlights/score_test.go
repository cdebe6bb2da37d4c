package highlights

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{"empty", "   ", 0, 0},
		{"flat", "we talked for a while about the weather", 0, 0},
		{"instructions", "How to fix it: first do this, then do that.", 1, 2},
		{"hooky", "Here is why this is important!", 1.5, 3},
		{"loud", "Never do this! Always remember the key secret? Important! Important! Important! Important! Important! Important! Important! Important! Important!", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.text)
			if got < tt.min || got > tt.max {
				t.Fatalf("Estimate(%q) = %v, want within [%v, %v]", tt.text, got, tt.min, tt.max)
			}
		})
	}
}

func TestEstimate_StepsCountAsHooks(t *testing.T) {
	plain := Estimate("do X and measure it")
	steps := Estimate("Step 1: do X. Step 2: measure 42ms.")
	if steps <= plain {
		t.Fatalf("expected numbered steps to score higher: %v <= %v", steps, plain)
	}
}
