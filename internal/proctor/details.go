package proctor

import "github.com/go-playground/validator/v10"

// CandidateDetails are the identity fields collected once before the exam
// starts. Only structural well-formedness is checked here; the identity
// provider owns everything else.
type CandidateDetails struct {
	Name    string `json:"name" validate:"required,min=3"`
	Age     int    `json:"age" validate:"required,gte=10,lte=100"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"required"`
}

var detailsValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate reports whether the details are structurally well-formed.
func (d CandidateDetails) Validate() error {
	return detailsValidator.Struct(d)
}
