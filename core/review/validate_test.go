package review

import (
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNormalizeRecord_outOfRangeResetsToZero(t *testing.T) {
	tests := []struct {
		name  string
		score *int
		want  *int
	}{
		{name: "unset stays unset", score: nil, want: nil},
		{name: "zero kept", score: intPtr(0), want: intPtr(0)},
		{name: "max kept", score: intPtr(10), want: intPtr(10)},
		{name: "above max resets", score: intPtr(11), want: intPtr(0)},
		{name: "negative resets", score: intPtr(-3), want: intPtr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NormalizeRecord(Review0, StudentReview{RegNo: "r1", Component1: tt.score, Attendance: true})
			if (rec.Component1 == nil) != (tt.want == nil) {
				t.Fatalf("Component1 = %v, want %v", rec.Component1, tt.want)
			}
			if rec.Component1 != nil && *rec.Component1 != *tt.want {
				t.Errorf("Component1 = %d, want %d", *rec.Component1, *tt.want)
			}
		})
	}
}

func TestNormalizeRecord_absenceZeroesComponents(t *testing.T) {
	sr := StudentReview{
		RegNo:      "r1",
		Component1: intPtr(8),
		Component2: intPtr(9),
		Component3: intPtr(7),
		Attendance: false,
		Comments:   "great work",
	}
	rec := NormalizeRecord(Review2, sr)

	for i, c := range []*int{rec.Component1, rec.Component2, rec.Component3} {
		if c == nil || *c != 0 {
			t.Errorf("component %d = %v, want 0", i+1, c)
		}
	}
	if rec.Comments != "" {
		t.Errorf("Comments = %q, want empty on absence", rec.Comments)
	}
	if rec.Attendance.Value {
		t.Error("Attendance.Value = true, want false")
	}
}

func TestNormalizeRecord_dropsUndefinedComponents(t *testing.T) {
	// review0 defines a single component; the rest must not be persisted
	sr := StudentReview{
		RegNo:      "r1",
		Component1: intPtr(6),
		Component2: intPtr(7),
		Component3: intPtr(8),
		Attendance: true,
	}
	rec := NormalizeRecord(Review0, sr)

	if rec.Component1 == nil || *rec.Component1 != 6 {
		t.Errorf("Component1 = %v, want 6", rec.Component1)
	}
	if rec.Component2 != nil || rec.Component3 != nil {
		t.Errorf("Component2/3 = %v/%v, want nil for undefined components", rec.Component2, rec.Component3)
	}
}

func TestNormalizeRecord_keepsComments(t *testing.T) {
	rec := NormalizeRecord(Review1, StudentReview{RegNo: "r1", Attendance: true, Comments: "  needs polish  "})
	if rec.Comments != "needs polish" {
		t.Errorf("Comments = %q, want trimmed comments", rec.Comments)
	}
}
