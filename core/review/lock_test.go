package review

import (
	"testing"
	"time"
)

func window(from, to string) DeadlineWindow {
	parse := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			panic(err)
		}
		return t
	}
	return DeadlineWindow{From: parse(from), To: parse(to)}
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestIsLocked_windowBoundaries(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review1: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	st := Student{ID: "s1", RegNo: "r1", Reviews: EmptyReviews()}

	tests := []struct {
		name string
		now  string
		want bool
	}{
		{name: "before window", now: "2024-12-31T23:59:59Z", want: true},
		{name: "at window start", now: "2025-01-01T00:00:00Z", want: false},
		{name: "inside window", now: "2025-01-05T12:00:00Z", want: false},
		{name: "at window end", now: "2025-01-10T00:00:00Z", want: false},
		{name: "after window", now: "2025-01-10T00:00:01Z", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nowFunc = func() time.Time { return at(tt.now) }
			defer func() { nowFunc = time.Now }()

			if got := IsLocked(st, Review1, defaults); got != tt.want {
				t.Errorf("IsLocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsLocked_explicitLockWins(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review1: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	st := Student{ID: "s1", RegNo: "r1", Reviews: EmptyReviews()}
	st.Reviews[Review1] = ReviewRecord{Locked: true}

	nowFunc = func() time.Time { return at("2025-01-05T00:00:00Z") } // inside window
	defer func() { nowFunc = time.Now }()

	if !IsLocked(st, Review1, defaults) {
		t.Error("IsLocked() = false, want true when the record carries an explicit lock")
	}
}

func TestIsLocked_noWindowFailsOpen(t *testing.T) {
	st := Student{ID: "s1", RegNo: "r1", Reviews: EmptyReviews()}
	if IsLocked(st, Review2, map[Milestone]DeadlineWindow{}) {
		t.Error("IsLocked() = true, want false when no window is configured")
	}
}

func TestIsLocked_overrideExtendsDeadline(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review2: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	st := Student{
		ID: "s1", RegNo: "r1", Reviews: EmptyReviews(),
		Deadlines: map[Milestone]DeadlineWindow{
			Review2: window("2025-01-15T00:00:00Z", "2025-01-20T00:00:00Z"),
		},
	}

	nowFunc = func() time.Time { return at("2025-01-16T00:00:00Z") } // past default, inside override
	defer func() { nowFunc = time.Now }()

	if IsLocked(st, Review2, defaults) {
		t.Error("IsLocked() = true, want false inside the override window")
	}
}

func TestIsLocked_teammateOverrideApplies(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review2: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	st := Student{ID: "s1", RegNo: "r1", Reviews: EmptyReviews()}
	mate := Student{
		ID: "s2", RegNo: "r2", Reviews: EmptyReviews(),
		Deadlines: map[Milestone]DeadlineWindow{
			Review2: window("2025-01-15T00:00:00Z", "2025-01-20T00:00:00Z"),
		},
	}

	nowFunc = func() time.Time { return at("2025-01-16T00:00:00Z") }
	defer func() { nowFunc = time.Now }()

	if IsLocked(st, Review2, defaults, mate) {
		t.Error("IsLocked() = true, want false when a teammate's override window is open")
	}
}

func TestEffectiveWindow_latestOverrideWins(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review3: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	s1 := Student{
		ID: "s1",
		Deadlines: map[Milestone]DeadlineWindow{
			Review3: window("2025-01-12T00:00:00Z", "2025-01-15T00:00:00Z"),
		},
	}
	s2 := Student{
		ID: "s2",
		Deadlines: map[Milestone]DeadlineWindow{
			Review3: window("2025-01-12T00:00:00Z", "2025-01-18T00:00:00Z"),
		},
	}

	win, ok := EffectiveWindow(Review3, defaults, s1, s2)
	if !ok {
		t.Fatal("EffectiveWindow() ok = false, want true")
	}
	if !win.To.Equal(at("2025-01-18T00:00:00Z")) {
		t.Errorf("EffectiveWindow() To = %v, want the latest override end", win.To)
	}
}
