package echoapi

import (
	"time"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/review"
)

type (
	LoginRequest struct {
		Login    string `json:"login" validate:"required"` // employee ID or email
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	// DeadlinesRequest maps milestones to their default windows.
	DeadlinesRequest map[review.Milestone]review.DeadlineWindow

	SubmitReviewRequest struct {
		Reviews []review.StudentReview `json:"reviews" validate:"required,min=1,dive"`
		// TeamPPTApproved fans out to the whole team on milestones that carry it.
		TeamPPTApproved *bool `json:"team_ppt_approved"`
	}

	NewRequestPayload struct {
		StudentRegNo string `json:"student_reg_no" validate:"required"`
		Milestone    string `json:"milestone" validate:"required"`
		Reason       string `json:"reason" validate:"required"`
	}

	ResolveRequest struct {
		Decision      string    `json:"decision" validate:"required,oneof=approved rejected"`
		NewDeadlineTo time.Time `json:"new_deadline_to"` // required when approving
	}

	NewPanelRequest struct {
		Faculty1ID string `json:"faculty1_id" validate:"required"`
		Faculty2ID string `json:"faculty2_id" validate:"required"`
	}

	AssignPanelRequest struct {
		PanelID string `json:"panel_id"` // empty clears the assignment
	}

	AutoPanelsRequest struct {
		Force bool `json:"force"`
	}

	AutoPanelsResponse struct {
		Created int `json:"created"`
	}

	RequestStatusResponse struct {
		Status review.RequestStatus `json:"status"`
	}

	// TeamResponse decorates a team with its derived PPT approval badge.
	TeamResponse struct {
		review.Team
		PptApproved bool `json:"ppt_approved"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Login = core.CleanString(r.Login, true /* lower */)
	return core.Validate.Struct(r)
}

func (r *SubmitReviewRequest) Validate() error {
	for i := range r.Reviews {
		r.Reviews[i].RegNo = core.CleanString(r.Reviews[i].RegNo, true /* lower */)
		r.Reviews[i].Comments = core.CleanString(r.Reviews[i].Comments)
	}
	return core.Validate.Struct(r)
}

func (r *NewRequestPayload) Validate() error {
	r.StudentRegNo = core.CleanString(r.StudentRegNo, true /* lower */)
	r.Milestone = core.CleanString(r.Milestone, true /* lower */)
	r.Reason = core.CleanString(r.Reason)
	return core.Validate.Struct(r)
}

func (r *ResolveRequest) Validate() error {
	r.Decision = core.CleanString(r.Decision, true /* lower */)
	return core.Validate.Struct(r)
}

func (r *NewPanelRequest) Validate() error {
	return core.Validate.Struct(r)
}
