// internal/models/user.go
package models

import "time"

// ValidatedUser is the record persisted and published once both validation
// branches succeeded. It is built once per execution and never mutated.
type ValidatedUser struct {
	UserID             string    `json:"userId"`
	RequestID          string    `json:"requestId"`
	Firstname          string    `json:"firstname"`
	Lastname           string    `json:"lastname"`
	Birthdate          string    `json:"birthdate"`
	CountryOfBirth     string    `json:"countryOfBirth"`
	CountryOfResidence string    `json:"countryOfResidence"`
	Street             string    `json:"street"`
	PostalCode         string    `json:"postalCode"`
	City               string    `json:"city"`
	NormalizedAddress  string    `json:"normalizedAddress"`
	AddressScore       float64   `json:"addressScore"`
	Email              string    `json:"email"`
	IDCardReference    string    `json:"idCardReference"`
	CreatedAt          time.Time `json:"createdAt"`
}

// ExtractedIdentity is what the document service read off the ID card.
type ExtractedIdentity struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Birthdate string `json:"birthdate"`
}

type AddressCheckResult struct {
	NormalizedAddress string  `json:"normalizedAddress"`
	ConfidenceScore   float64 `json:"confidenceScore"`
}
