package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"0 m/s to mph", 0.0, MPH, 0.0},
		{"serve 55.56 m/s to kmph", 55.56, KMPH, 200.016},
		{"rally 22.22 m/s to kmph", 22.22, KMPH, 79.992},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.units)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.units, result, tt.expected)
			}
		})
	}
}

func TestMetersPerPixel(t *testing.T) {
	want := 23.77 / 1920
	if math.Abs(MetersPerPixel-want) > 1e-15 {
		t.Errorf("MetersPerPixel = %v, want %v", MetersPerPixel, want)
	}
}

func TestPixelsToMeters(t *testing.T) {
	if got := PixelsToMeters(1920, 0); math.Abs(got-23.77) > 1e-9 {
		t.Errorf("PixelsToMeters(1920, default) = %v, want 23.77", got)
	}
	if got := PixelsToMeters(100, 0.02); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("PixelsToMeters(100, 0.02) = %v, want 2", got)
	}
	if got := PixelsToMeters(100, -1); math.Abs(got-100*MetersPerPixel) > 1e-12 {
		t.Errorf("negative scale should fall back to MetersPerPixel, got %v", got)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     float64
	}{
		{0.22284375, 2, 0.22},
		{0.22284375, 4, 0.2228},
		{12.345, 2, 12.35},
		{0.6666, 3, 0.667},
		{5, 0, 5},
		{1.2345, -1, 1.2345},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.decimals); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.decimals, got, tt.want)
		}
	}
}
