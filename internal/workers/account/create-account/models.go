package createaccount

import "account-onboarding/internal/models"

type Input struct {
	User models.ValidatedUser `json:"user"`
}

type Output struct {
	UserID string `json:"userId"`
	// Created is false when the account already existed under this id.
	Created   bool   `json:"created"`
	CreatedAt string `json:"createdAt"` // ISO 8601
}
