package model

import (
	"time"

	"github.com/google/uuid"
)

// Entitlement records that a candidate purchased an exam product and may
// attempt it. Granting is idempotent; the storefront calls it on every
// completed order.
type Entitlement struct {
	ID          int64     `json:"id"`
	CandidateID int       `json:"candidate_id"`
	ProductID   uuid.UUID `json:"product_id"`
	GrantedAt   time.Time `json:"granted_at"`
}

// GrantEntitlementRequest is the payload for granting exam access.
type GrantEntitlementRequest struct {
	CandidateID int       `json:"candidate_id" binding:"required,min=1"`
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
}
