package errors

import (
	"github.com/sirupsen/logrus"
)

// HTTPStatusCode maps an error's code to the HTTP status the webhook API
// should answer with.
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput, ErrCodeInvalidConfig, ErrCodeFormatFailed:
		return 400
	case ErrCodeNotFound:
		return 404
	case ErrCodeTimeout:
		return 408
	case ErrCodeRateLimit:
		return 429
	case ErrCodeDatabaseConnection, ErrCodeDatabaseQuery, ErrCodeDatabaseMigration:
		return 503
	case ErrCodeGroupingFailed:
		// Retryable grouping failures are storage contention, not bugs.
		if IsRetryable(err) {
			return 503
		}
		return 500
	default:
		return 500
	}
}

// HTTPErrorResponse is the JSON body written for failed requests.
type HTTPErrorResponse struct {
	Error struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Context interface{} `json:"context,omitempty"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// credential-like detail keys that must never reach an API client
var privateDetailKeys = map[string]bool{
	"password": true,
	"token":    true,
	"secret":   true,
}

// ToHTTPResponse builds the response body for err, exposing only the
// client-facing message and non-sensitive detail fields.
func ToHTTPResponse(err error, requestID string) HTTPErrorResponse {
	var resp HTTPErrorResponse
	resp.RequestID = requestID
	resp.Error.Code = GetCode(err)
	resp.Error.Message = GetUserMessage(err)

	appErr, ok := err.(*AppError)
	if !ok || len(appErr.Details) == 0 {
		return resp
	}

	public := make(map[string]interface{})
	for k, v := range appErr.Details {
		if !privateDetailKeys[k] {
			public[k] = v
		}
	}
	if len(public) > 0 {
		resp.Error.Context = public
	}
	return resp
}

// LogFields flattens an error into logrus fields: its code, retryability,
// and any detail pairs attached via WithDetail.
func LogFields(err error) logrus.Fields {
	fields := logrus.Fields{
		"error_code": GetCode(err),
	}
	if appErr, ok := err.(*AppError); ok {
		fields["retryable"] = appErr.Retryable
		for k, v := range appErr.Details {
			fields[k] = v
		}
	}
	return fields
}
