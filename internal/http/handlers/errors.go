// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Every error body carries request_id, code and message. Clients branch on
// code. Middleware that aborts before a handler runs emits its own codes in
// the same envelope: unauthorized (AdminAuth), bad_idempotency_key and
// too_many_requests.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "please use the buttons",
//	  "reply": {"selector": "use_buttons"}
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Funnel-specific.
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeTransitionFailed  = "transition_failed"
	ErrCodeIdentityMismatch  = "identity_mismatch"
	ErrCodeListFailed        = "list_failed"
	ErrCodeStatsFailed       = "stats_failed"
)
