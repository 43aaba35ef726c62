package errors

import "net/http"

// Domain-specific errors for the fraud-scoring API.

// API key / auth errors
var (
	ErrAPIKeyNotFound = &Error{
		Code:       "API_KEY_NOT_FOUND",
		Message:    "api key not recognized",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrAPIKeyInactive = &Error{
		Code:       "API_KEY_INACTIVE",
		Message:    "api key has been revoked",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrAPIKeyExpired = &Error{
		Code:       "API_KEY_EXPIRED",
		Message:    "api key has expired",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// Transaction errors
var (
	ErrTransactionNotFound = &Error{
		Code:       "TRANSACTION_NOT_FOUND",
		Message:    "transaction not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrDuplicateTransaction = &Error{
		Code:       "DUPLICATE_TRANSACTION",
		Message:    "transaction with this id already scored",
		HTTPStatus: http.StatusConflict,
	}

	ErrInvalidTransaction = &Error{
		Code:       "INVALID_TRANSACTION",
		Message:    "transaction failed validation",
		HTTPStatus: http.StatusBadRequest,
	}
)

// Model errors
var (
	ErrModelUnavailable = &Error{
		Code:       "MODEL_UNAVAILABLE",
		Message:    "scoring model unavailable, rule-based fallback engaged",
		HTTPStatus: http.StatusOK,
	}
)
