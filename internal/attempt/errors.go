package attempt

import "github.com/pkg/errors"

var (
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrNotAvailable     = errors.New("quiz is not available")
	ErrNotReady         = errors.New("quiz is not loaded")
	ErrClosed           = errors.New("session closed")
	ErrInvalidOption    = errors.New("option must be between 1 and 4")
	ErrUnknownQuestion  = errors.New("unknown question")
)

// Messages shown when the backend gives no message of its own.
const (
	msgLoadFailed    = "Failed to load quiz."
	msgLoadNetwork   = "Network error. Please check your connection and try again."
	msgSubmitFailed  = "Failed to submit quiz."
	msgSubmitNetwork = "Network error during submission. Please try again."
	msgNotStarted    = "This quiz is not available. It will start at %s on %s."
	msgEnded         = "This quiz is not available. The quiz has ended."
)

// APIError classifies backend failures for user-facing messages.
// Implemented by the HTTP client.
type APIError interface {
	error
	// ServerMessage is the message from the response body, if any.
	ServerMessage() string
	// Network reports a transport failure rather than an error response.
	Network() bool
}

// UserMessage picks the text to show for err, with fallback used when the
// backend supplied nothing better.
func UserMessage(err error, fallback, network string) string {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		if apiErr.Network() {
			return network
		}
		if m := apiErr.ServerMessage(); m != "" {
			return m
		}
		return fallback
	}
	return fallback
}
