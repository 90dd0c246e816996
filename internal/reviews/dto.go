package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
)

const maxCommentLength = 2000

// SubmitReviewInput is the payload of a new review. The reviewer comes from the session.
type SubmitReviewInput struct {
	TargetID   uuid.UUID              `json:"target_id" validate:"required"`
	TargetKind enums.ReviewTargetKind `json:"target_kind" validate:"required,oneof=book user"`
	Rating     int                    `json:"rating" validate:"min=1,max=5"`
	Comment    *string                `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// Target identifies the rated entity.
type Target struct {
	Kind enums.ReviewTargetKind
	ID   uuid.UUID
}

type ReviewDTO struct {
	ID         uuid.UUID              `json:"id"`
	TargetKind enums.ReviewTargetKind `json:"target_kind"`
	TargetID   uuid.UUID              `json:"target_id"`
	ReviewerID uuid.UUID              `json:"reviewer_id"`
	Rating     int                    `json:"rating"`
	Comment    *string                `json:"comment,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ReviewResult carries the stored review and the target's aggregate after it was applied.
type ReviewResult struct {
	Review ReviewDTO `json:"review"`
	Mean   float64   `json:"rating_mean"`
	Count  int       `json:"rating_count"`
}

func FromModel(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:         r.ID,
		TargetKind: r.TargetKind,
		TargetID:   r.TargetID,
		ReviewerID: r.ReviewerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
	}
}
