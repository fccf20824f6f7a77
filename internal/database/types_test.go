package database

import "testing"

func TestComputeSummary(t *testing.T) {
	records := make([]AttendanceRecord, 0, 10)
	for i := range 10 {
		status := StatusAbsent
		if i < 7 {
			status = StatusPresent
		}
		records = append(records, AttendanceRecord{StudentID: int64(i + 1), Status: status})
	}

	s := ComputeSummary(records)

	if s.Total != 10 {
		t.Errorf("expected total 10, got %d", s.Total)
	}
	if s.Present != 7 {
		t.Errorf("expected 7 present, got %d", s.Present)
	}
	if s.Absent != 3 {
		t.Errorf("expected 3 absent, got %d", s.Absent)
	}
	if s.Percentage != 70.0 {
		t.Errorf("expected percentage 70.0, got %f", s.Percentage)
	}
}

func TestComputeSummary_Empty(t *testing.T) {
	s := ComputeSummary(nil)

	if s.Total != 0 || s.Present != 0 || s.Absent != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
	if s.Percentage != 0 {
		t.Errorf("expected percentage 0 for empty session, got %f", s.Percentage)
	}
}

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{70.0, 70.0},
		{66.666666, 66.67},
		{33.333333, 33.33},
		{0, 0},
		{100, 100},
	}

	for _, tc := range tests {
		got := RoundPercent(tc.input)
		if got != tc.want {
			t.Errorf("RoundPercent(%f) = %f, want %f", tc.input, got, tc.want)
		}
	}
}
