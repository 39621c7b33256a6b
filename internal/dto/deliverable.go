package dto

import "github.com/icdev-br/pic-portal-api/internal/models"

// SubmitDeliverableRequest submits an artifact for dual review.
type SubmitDeliverableRequest struct {
	Kind        models.DeliverableKind `json:"kind" validate:"required"`
	FileRef     string                 `json:"file_ref" validate:"required"`
	Description string                 `json:"description"`
}
