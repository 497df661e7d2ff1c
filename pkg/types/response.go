// Package types holds the JSON envelopes every API response is wrapped in.
package types

// SuccessEnvelope is {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error. Retryable tells the client the same
// request may succeed later, e.g. after a gateway outage.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorEnvelope is {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
