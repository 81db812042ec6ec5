package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// CredentialMode selects whether session credentials travel with a request.
type CredentialMode int

const (
	// CredentialsInclude sends cookies and the bearer token.
	CredentialsInclude CredentialMode = iota
	// CredentialsOmit sends the request anonymously.
	CredentialsOmit
)

func (m CredentialMode) String() string {
	if m == CredentialsOmit {
		return "omit"
	}
	return "include"
}

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request describes one backend call: a target plus its options.
//
// A Request with an empty URL is unresolvable. Fetchers stay idle for it and
// never touch the network.
type Request struct {
	URL         string
	Method      string
	Credentials CredentialMode
	Body        []byte
	ContentType string
}

// Get returns a credentialed GET request for target.
func Get(target string) Request {
	return Request{URL: target, Method: http.MethodGet, Credentials: CredentialsInclude}
}

// Resolvable reports whether the request has a usable target.
func (r Request) Resolvable() bool {
	return r.URL != ""
}

// key identifies a target/options pair. Equal keys mean "nothing changed".
func (r Request) key() string {
	return fmt.Sprintf("%s %s %s %s %x", r.method(), r.URL, r.Credentials, r.ContentType, r.Body)
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method(), r.URL, body)
	if err != nil {
		return nil, err
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// URL joins base and path parts into a target. It returns "" when any part is
// empty, so a missing id (e.g. before the session is hydrated) yields an
// unresolvable Request instead of a malformed URL.
func URL(base string, parts ...string) string {
	if base == "" {
		return ""
	}
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return ""
		}
		segs = append(segs, url.PathEscape(p))
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}
