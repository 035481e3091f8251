package ai

import "fmt"

// GatewayErrorKind classifies a gateway failure.
type GatewayErrorKind string

// Gateway failure kinds.
const (
	// KindUnavailable means the model endpoint could not be reached or
	// refused to serve the request.
	KindUnavailable GatewayErrorKind = "unavailable"
	// KindTimeout means the request did not complete within the
	// configured timeout, including after retries.
	KindTimeout GatewayErrorKind = "timeout"
	// KindMalformedResponse means the endpoint answered but the payload
	// carried no usable text.
	KindMalformedResponse GatewayErrorKind = "malformed_response"
)

// GatewayError is the failure surface of the LLM gateway. Each kind is
// distinguishable by the caller for fallback decisions.
type GatewayError struct {
	Kind GatewayErrorKind
	Err  error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm gateway %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("llm gateway %s", e.Kind)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(kind GatewayErrorKind, err error) *GatewayError {
	return &GatewayError{Kind: kind, Err: err}
}
