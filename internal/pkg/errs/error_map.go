package errs

import "net/http"

// errorMap holds the client message and HTTP status for every error code.
// A zero Status means 400 Bad Request.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters: %s"},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrNotFound:              {Code: ErrNotFound, Message: "Not found.", Status: http.StatusNotFound},

	// 2xxx: Token Request Errors
	ErrInvalidChannelName: {Code: ErrInvalidChannelName, Message: "Invalid channel name."},
	ErrInvalidRole:        {Code: ErrInvalidRole, Message: "Role must be host or audience."},
	ErrInvalidTokenType:   {Code: ErrInvalidTokenType, Message: "Token type must be rtc, rtm or combined."},
	ErrInvalidExpire:      {Code: ErrInvalidExpire, Message: "Token lifetime must be between %d and %d seconds."},
	ErrIdentityConflict:   {Code: ErrIdentityConflict, Message: "Send either uid or account, not both."},
	ErrMalformedToken:     {Code: ErrMalformedToken, Message: "Token could not be decoded."},

	// 3xxx: Authorization Errors
	ErrUnauthorized:      {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrHostRoleForbidden: {Code: ErrHostRoleForbidden, Message: "Only signed-in hosts can publish to a channel.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrTokenBuildFailed: {Code: ErrTokenBuildFailed, Message: "Could not build a token for this request.", Status: http.StatusInternalServerError},
}
