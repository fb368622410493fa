package utils

import "github.com/google/uuid"

// UniqueCode returns a 12-hex-char code for questionnaire URLs. Short enough
// to read out over the phone, random enough that guessing one is infeasible
// at the volumes a deanery produces.
func UniqueCode() (string, error) {
	return randomHex(6)
}

// NewExternalToken returns the bearer token embedded in external-assessor
// links. The token is the sole credential for that flow, so it is a full
// random UUID rather than a short code.
func NewExternalToken() string {
	return uuid.NewString()
}
