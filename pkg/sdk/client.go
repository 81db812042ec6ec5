package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/terraconstructs/blogdesk/pkg/fetch"
)

// ErrMissingUserID is returned when an operation needs a user id that is not known yet.
var ErrMissingUserID = errors.New("user id is required")

// Client provides the backend contract used by every screen: endpoint
// construction, fetcher factories and one-shot calls.
type Client struct {
	baseURL   string
	http      fetch.Doer
	anonymous fetch.Doer
}

// ClientOptions configures SDK client construction.
type ClientOptions struct {
	HTTPClient          fetch.Doer
	AnonymousHTTPClient fetch.Doer
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the client used for credentialed calls.
func WithHTTPClient(client fetch.Doer) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithAnonymousHTTPClient overrides the client used when credentials are omitted.
func WithAnonymousHTTPClient(client fetch.Doer) ClientOption {
	return func(opts *ClientOptions) {
		opts.AnonymousHTTPClient = client
	}
}

// NewClient creates a client for the API rooted at baseURL.
// http.DefaultClient is used when no client is supplied.
func NewClient(baseURL string, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.AnonymousHTTPClient == nil {
		opts.AnonymousHTTPClient = http.DefaultClient
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      opts.HTTPClient,
		anonymous: opts.AnonymousHTTPClient,
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CategoriesRequest targets GET /category/all-category.
func (c *Client) CategoriesRequest() fetch.Request {
	return fetch.Get(fetch.URL(c.baseURL, "category", "all-category"))
}

// GetUserRequest targets GET /user/get-user/:id. It is unresolvable while id is empty.
func (c *Client) GetUserRequest(id string) fetch.Request {
	return fetch.Get(fetch.URL(c.baseURL, "user", "get-user", id))
}

// UpdateUserURL returns the update endpoint for id, or "" when id is empty.
func (c *Client) UpdateUserURL(id string) string {
	return fetch.URL(c.baseURL, "user", "update-user", id)
}

// NewCategoryFetcher returns a fresh fetcher for the category listing.
func (c *Client) NewCategoryFetcher() *fetch.Fetcher[CategoryList] {
	return fetch.New[CategoryList](c.http, fetch.WithAnonymousDoer(c.anonymous), fetch.WithName("categories"))
}

// NewUserFetcher returns a fresh fetcher for a user record.
func (c *Client) NewUserFetcher() *fetch.Fetcher[UserEnvelope] {
	return fetch.New[UserEnvelope](c.http, fetch.WithAnonymousDoer(c.anonymous), fetch.WithName("user"))
}

// ListCategories returns categories in backend order.
func (c *Client) ListCategories(ctx context.Context) ([]CategoryEntry, error) {
	list, err := fetch.Do[CategoryList](ctx, c.http, c.CategoriesRequest())
	if err != nil {
		return nil, err
	}
	return list.Category, nil
}

// GetUser loads a user record by id.
func (c *Client) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	if id == "" {
		return nil, ErrMissingUserID
	}
	env, err := fetch.Do[UserEnvelope](ctx, c.http, c.GetUserRequest(id))
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &fetch.Error{StatusCode: http.StatusOK, Message: "user could not be loaded"}
	}
	return &env.User, nil
}

// UpdateUser submits fields and, when file is non-nil, a replacement avatar as
// one multipart request. A nil file omits the "file" field entirely, which the
// backend reads as "keep the current avatar".
func (c *Client) UpdateUser(ctx context.Context, id string, fields ProfileFields, file *Upload) (*UpdateUserResponse, error) {
	target := c.UpdateUserURL(id)
	if target == "" {
		return nil, ErrMissingUserID
	}

	body, contentType, err := encodeProfileUpdate(fields, file)
	if err != nil {
		return nil, &fetch.Error{Message: "could not encode profile update", Err: err}
	}

	return fetch.Do[UpdateUserResponse](ctx, c.http, fetch.Request{
		URL:         target,
		Method:      http.MethodPut,
		Credentials: fetch.CredentialsInclude,
		Body:        body,
		ContentType: contentType,
	})
}

func encodeProfileUpdate(fields ProfileFields, file *Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
		ct := file.ContentType
		if ct == "" {
			ct = http.DetectContentType(file.Data)
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("data", string(data)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	return fetch.HasStatus(err, http.StatusUnauthorized, http.StatusForbidden)
}
