package project

import (
	"fmt"
	"unicode"

	"github.com/revisant/dictum/internal/domain"
)

// ValidateSubmitRequest validates the fields of a project submission.
func ValidateSubmitRequest(req SubmitRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(req.Name) > 255 {
		return fmt.Errorf("name exceeds 255 characters: %w", domain.ErrValidation)
	}
	for _, r := range req.Name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control characters: %w", domain.ErrValidation)
		}
	}
	if req.SponsorID == "" {
		return fmt.Errorf("sponsor_id is required: %w", domain.ErrValidation)
	}
	if req.BudgetEstimate < 0 {
		return fmt.Errorf("budget_estimate must be >= 0: %w", domain.ErrValidation)
	}
	if len(req.Description) > 10000 {
		return fmt.Errorf("description exceeds 10000 characters: %w", domain.ErrValidation)
	}
	return nil
}
