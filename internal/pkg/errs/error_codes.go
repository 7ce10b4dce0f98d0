/*
Package errs provides custom error types and application-level error code constants.

These error codes identify request, authorization and token issuance failures
both inside the server and in the JSON payloads sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON for the endpoint.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrNotFound indicates that the route is not available in this environment.
	ErrNotFound = 1008
)

// 2xxx: Token Request Errors
const (
	// ErrInvalidChannelName indicates a missing or malformed channel name.
	ErrInvalidChannelName = 2101

	// ErrInvalidRole indicates a role other than host or audience.
	ErrInvalidRole = 2102

	// ErrInvalidTokenType indicates a token type other than rtc, rtm or combined.
	ErrInvalidTokenType = 2103

	// ErrInvalidExpire indicates a requested lifetime outside the configured bounds.
	ErrInvalidExpire = 2104

	// ErrIdentityConflict indicates that both uid and account were supplied.
	ErrIdentityConflict = 2105

	// ErrMalformedToken indicates that a token submitted for inspection could not be decoded.
	ErrMalformedToken = 2201
)

// 3xxx: Authorization Errors
const (
	// ErrUnauthorized indicates that the request carries no valid identity.
	ErrUnauthorized = 3001

	// ErrHostRoleForbidden indicates that the caller may not request the host role.
	ErrHostRoleForbidden = 3002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrTokenBuildFailed indicates that the token core rejected the request values.
	ErrTokenBuildFailed = 5001
)
