package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeMissingCredential = "missing_credential"
	ErrCodeInvalidCredential = "invalid_credential"
	ErrCodeNoActiveAccess    = "no_active_access"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Resource errors
	ErrCodeNotFound = "not_found"

	// Data store errors
	ErrCodeEntitlementLookupFailed = "entitlement_lookup_failed"
	ErrCodeContentLookupFailed     = "content_lookup_failed"
	ErrCodeCreateFailed            = "create_failed"
	ErrCodePublishFailed           = "publish_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Feature availability
	ErrCodeFeatureNotAvailable = "feature_not_available"
)
