package models

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeBadRequest        = 40000
	ErrCodeValidation        = 40001
	ErrCodeTokenInvalid      = 40101
	ErrCodeTokenExpired      = 40102
	ErrCodeWrongCredentials  = 40103
	ErrCodeForbidden         = 40300
	ErrCodeUserSuspended     = 40301
	ErrCodeNotFound          = 40400
	ErrCodeUserNotFound      = 40401
	ErrCodeConflict          = 40900
	ErrCodeDuplicateUsername = 40901
	ErrCodeDuplicateEmail    = 40902
	ErrCodeAlreadyRevoked    = 40903
	ErrCodeTooManyRequests   = 42900
	ErrCodeInternal          = 50000
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
