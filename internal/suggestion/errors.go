package suggestion

import "net/http"

type ErrorCode string

const (
	GenericError    ErrorCode = "SUGGESTION_001"
	ConnectionError ErrorCode = "SUGGESTION_002"
	ServerError     ErrorCode = "SUGGESTION_003"
	UnexpectedError ErrorCode = "SUGGESTION_004"

	BadRequest      ErrorCode = "SUGGESTION_400"
	Unauthorized    ErrorCode = "SUGGESTION_401"
	Forbidden       ErrorCode = "SUGGESTION_403"
	NotFound        ErrorCode = "SUGGESTION_404"
	ServerException ErrorCode = "SUGGESTION_500"
)

const (
	msgRetryLater   = "An error occurred while processing your request. Please try again later."
	msgUnreachable  = "The suggestion service is temporarily unreachable. Please try again later."
	msgServerFault  = "The suggestion service failed to process your request. Please try again later."
	msgBadRequest   = "The request is invalid. Please check your data."
	msgUnauthorized = "Authentication failed. Please check your credentials."
	msgForbidden    = "You do not have permission to access this resource."
	msgNotFound     = "The requested resource was not found."
)

var messages = map[ErrorCode]string{
	GenericError:    msgRetryLater,
	ConnectionError: msgUnreachable,
	ServerError:     msgServerFault,
	UnexpectedError: msgRetryLater,
	BadRequest:      msgBadRequest,
	Unauthorized:    msgUnauthorized,
	Forbidden:       msgForbidden,
	NotFound:        msgNotFound,
	ServerException: msgRetryLater,
}

// Error is the classified failure returned to callers. Message is safe to show
// to end users and never contains upstream details.
type Error struct {
	Code    ErrorCode `json:"error_code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code ErrorCode) *Error {
	msg, ok := messages[code]
	if !ok {
		msg = msgRetryLater
	}

	return &Error{Code: code, Message: msg}
}

// classifyStatus maps a non-200 HTTP status to an error code.
func classifyStatus(status int) ErrorCode {
	switch {
	case status == http.StatusBadRequest:
		return BadRequest
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound:
		return NotFound
	case status >= http.StatusInternalServerError:
		return ServerError
	case status >= http.StatusMultipleChoices:
		return ServerException
	default:
		// 1xx and 2xx other than 200: the service answered, but not with what we expect.
		return GenericError
	}
}
