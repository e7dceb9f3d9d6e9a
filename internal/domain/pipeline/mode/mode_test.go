package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Mode{Auto, Aggregate, Retrieve}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "hybrid", "AUTO", "keyword"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestStages(t *testing.T) {
	tests := []struct {
		mode      Mode
		plans     bool
		retrieves bool
	}{
		{Auto, true, true},
		{Aggregate, true, false},
		{Retrieve, false, true},
	}
	for _, tc := range tests {
		if got := tc.mode.Plans(); got != tc.plans {
			t.Errorf("%q.Plans() = %v, want %v", tc.mode, got, tc.plans)
		}
		if got := tc.mode.Retrieves(); got != tc.retrieves {
			t.Errorf("%q.Retrieves() = %v, want %v", tc.mode, got, tc.retrieves)
		}
	}
}
