package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// TransportFailureMessage is used when the request never produced a response.
	TransportFailureMessage = "network request failed"
	// InvalidResponseMessage is used when a successful response cannot be decoded.
	InvalidResponseMessage = "invalid response from server"
)

// ErrUnresolvable is returned by Do for a Request without a target.
var ErrUnresolvable = errors.New("request target is not resolvable")

// Error describes a failed request. Message is always human readable and safe
// to show to the user.
type Error struct {
	// StatusCode is zero when no response was received.
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HasStatus reports whether err is an *Error carrying one of codes.
func HasStatus(err error, codes ...int) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	for _, c := range codes {
		if fe.StatusCode == c {
			return true
		}
	}
	return false
}

// serverMessage is the error envelope the backend uses on non-2xx responses.
type serverMessage struct {
	Message string `json:"message"`
}

// Do issues req once and decodes the JSON body into T.
func Do[T any](ctx context.Context, doer Doer, req Request) (*T, error) {
	if !req.Resolvable() {
		return nil, ErrUnresolvable
	}

	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, &Error{Message: TransportFailureMessage, Err: err}
	}

	resp, err := doer.Do(httpReq)
	if err != nil {
		return nil, &Error{Message: TransportFailureMessage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: TransportFailureMessage, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body)
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: InvalidResponseMessage, Err: err}
	}
	return &out, nil
}

func statusError(code int, body []byte) *Error {
	var msg serverMessage
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return &Error{StatusCode: code, Message: msg.Message}
	}
	return &Error{StatusCode: code, Message: fmt.Sprintf("Error: %s, %d", http.StatusText(code), code)}
}

func asError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{Message: TransportFailureMessage, Err: err}
}
