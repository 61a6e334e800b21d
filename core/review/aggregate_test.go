package review

import (
	"testing"
	"time"
)

func approvedStudent(id string, approved bool) Student {
	return Student{
		ID:          id,
		RegNo:       id,
		Reviews:     EmptyReviews(),
		PPTApproved: PPTApproval{Approved: approved},
	}
}

func TestTeamPptApproved(t *testing.T) {
	tests := []struct {
		name string
		team Team
		want bool
	}{
		{name: "empty team", team: Team{}, want: false},
		{
			name: "all approved",
			team: Team{Students: []Student{approvedStudent("s1", true), approvedStudent("s2", true), approvedStudent("s3", true)}},
			want: true,
		},
		{
			name: "one not approved",
			team: Team{Students: []Student{approvedStudent("s1", true), approvedStudent("s2", true), approvedStudent("s3", false)}},
			want: false,
		},
		{
			name: "single member approved",
			team: Team{Students: []Student{approvedStudent("s1", true)}},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TeamPptApproved(tt.team); got != tt.want {
				t.Errorf("TeamPptApproved() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTeamLocked(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review1: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	nowFunc = func() time.Time { return at("2025-01-15T00:00:00Z") } // past default deadline
	defer func() { nowFunc = time.Now }()

	st1 := approvedStudent("s1", false)
	st2 := approvedStudent("s2", false)
	team := Team{Students: []Student{st1, st2}}

	if !TeamLocked(team, Review1, defaults) {
		t.Error("TeamLocked() = false, want true past the deadline")
	}

	// one member's override reopens the milestone for the whole team
	st2.Deadlines = map[Milestone]DeadlineWindow{
		Review1: window("2025-01-12T00:00:00Z", "2025-01-20T00:00:00Z"),
	}
	team = Team{Students: []Student{st1, st2}}
	if TeamLocked(team, Review1, defaults) {
		t.Error("TeamLocked() = true, want false when a member override is open")
	}
}

func TestTeamRequestStatus(t *testing.T) {
	defaults := map[Milestone]DeadlineWindow{
		Review2: window("2025-01-01T00:00:00Z", "2025-01-10T00:00:00Z"),
	}
	st1 := approvedStudent("s1", false)
	st2 := approvedStudent("s2", false)
	team := Team{Students: []Student{st1, st2}}

	req := func(studentID string, status RequestStatus, createdAt string) ExceptionRequest {
		return ExceptionRequest{
			StudentID: studentID,
			Milestone: Review2,
			Status:    status,
			CreatedAt: at(createdAt),
		}
	}

	tests := []struct {
		name     string
		now      string
		requests []ExceptionRequest
		want     RequestStatus
	}{
		{name: "no requests, unlocked", now: "2025-01-05T00:00:00Z", want: StatusNone},
		{name: "no requests, locked", now: "2025-01-15T00:00:00Z", want: StatusNone},
		{
			name: "pending wins over approved",
			now:  "2025-01-15T00:00:00Z",
			requests: []ExceptionRequest{
				req("s1", StatusApproved, "2025-01-11T00:00:00Z"),
				req("s2", StatusPending, "2025-01-12T00:00:00Z"),
			},
			want: StatusPending,
		},
		{
			name: "approved while locked reads as none",
			now:  "2025-01-15T00:00:00Z",
			requests: []ExceptionRequest{
				req("s1", StatusApproved, "2025-01-11T00:00:00Z"),
			},
			want: StatusNone,
		},
		{
			name: "approved while unlocked",
			now:  "2025-01-05T00:00:00Z",
			requests: []ExceptionRequest{
				req("s1", StatusApproved, "2025-01-02T00:00:00Z"),
			},
			want: StatusApproved,
		},
		{
			name: "rejected reads as none",
			now:  "2025-01-05T00:00:00Z",
			requests: []ExceptionRequest{
				req("s1", StatusRejected, "2025-01-02T00:00:00Z"),
			},
			want: StatusNone,
		},
		{
			name: "latest request per student wins",
			now:  "2025-01-05T00:00:00Z",
			requests: []ExceptionRequest{
				req("s1", StatusPending, "2025-01-02T00:00:00Z"),
				req("s1", StatusRejected, "2025-01-03T00:00:00Z"),
			},
			want: StatusNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nowFunc = func() time.Time { return at(tt.now) }
			defer func() { nowFunc = time.Now }()

			if got := TeamRequestStatus(team, Review2, defaults, tt.requests); got != tt.want {
				t.Errorf("TeamRequestStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
