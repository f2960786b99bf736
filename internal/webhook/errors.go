package webhook

import "errors"

var (
	ErrMissingHeaders   = errors.New("webhook: missing svix headers")
	ErrSignatureInvalid = errors.New("webhook: signature verification failed")
	ErrMalformedPayload = errors.New("webhook: malformed payload")
)

// IsVerificationError reports whether err rejects the delivery itself,
// as opposed to a failure further down the pipeline.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMissingHeaders) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrMalformedPayload)
}
