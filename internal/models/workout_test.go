package models

import (
	"encoding/json"
	"math"
	"testing"
)

// TestWholeNumber verifies integral values convert and fractional,
// non-finite or out-of-range values are rejected.
func TestWholeNumber(t *testing.T) {
	tests := []struct {
		in      float64
		want    int
		wantErr bool
	}{
		{5, 5, false},
		{0, 0, false},
		{-3, -3, false},
		{math.MaxInt32, math.MaxInt32, false},
		{5.5, 0, true},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
		{1e20, 0, true},
		{-1e20, 0, true},
		{math.MaxInt32 + 1, 0, true},
	}
	for _, tt := range tests {
		got, err := WholeNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("WholeNumber(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("WholeNumber(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestSetPatchRejectsHugeReps verifies an out-of-range reps value fails to
// decode instead of wrapping.
func TestSetPatchRejectsHugeReps(t *testing.T) {
	var p SetPatch
	if err := json.Unmarshal([]byte(`{"reps": 1e20}`), &p); err == nil {
		t.Errorf("Unmarshal accepted reps 1e20, decoded %v", *p.Reps)
	}
}
