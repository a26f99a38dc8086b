package types

// SuccessEnvelope wraps internal API payloads. Webhook receipts are the
// exception: the gateway owns that contract and gets unwrapped JSON.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
