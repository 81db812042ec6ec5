// Package mockapi serves an in-memory rendition of the blog backend's user and
// category endpoints. It backs the package tests and `blogctl mock-api`.
package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

// UpdateSuccessMessage is returned by a successful PUT /user/update-user/:id.
const UpdateSuccessMessage = "Profile updated successfully."

// maxUploadBytes bounds the multipart form kept in memory.
const maxUploadBytes = 10 << 20

// Update records one received profile update.
type Update struct {
	UserID    string
	HasFile   bool
	Filename  string
	FileData  []byte
	Fields    sdk.ProfileFields
	RequestID string
}

// Failure makes an endpoint answer with Status. An empty Message produces a
// body without a "message" field.
type Failure struct {
	Status  int
	Message string
}

// Backend is the mutable state behind the router. All methods are safe for
// concurrent use.
type Backend struct {
	mu         sync.Mutex
	users      map[string]sdk.UserProfile
	categories []sdk.CategoryEntry
	updates    []Update
	token      string
	failures   map[string]Failure
	hold       map[string]chan struct{}
}

// Endpoint names used with Fail and Hold.
const (
	EndpointCategories = "categories"
	EndpointGetUser    = "get-user"
	EndpointUpdateUser = "update-user"
)

// New returns an empty backend that accepts every caller.
func New() *Backend {
	return &Backend{
		users:    make(map[string]sdk.UserProfile),
		failures: make(map[string]Failure),
		hold:     make(map[string]chan struct{}),
	}
}

// Seed returns a backend with a reader, an admin and two categories.
func Seed() *Backend {
	b := New()
	b.PutUser(sdk.UserProfile{ID: "u-reader", Name: "Ada Reader", Email: "ada@example.com", Bio: "Reads a lot.", Avatar: "/uploads/ada.png", Role: sdk.RoleReader})
	b.PutUser(sdk.UserProfile{ID: "u-admin", Name: "Grace Admin", Email: "grace@example.com", Bio: "Runs the place.", Role: sdk.RoleAdmin})
	b.SetCategories(
		sdk.CategoryEntry{ID: "c1", Name: "Tech", Slug: "tech"},
		sdk.CategoryEntry{ID: "c2", Name: "Travel", Slug: "travel"},
	)
	return b
}

// PutUser inserts or replaces a user record.
func (b *Backend) PutUser(u sdk.UserProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[u.ID] = u
}

// User returns the stored record for id.
func (b *Backend) User(id string) (sdk.UserProfile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	return u, ok
}

// SetCategories replaces the category listing, preserving order.
func (b *Backend) SetCategories(cats ...sdk.CategoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = append([]sdk.CategoryEntry(nil), cats...)
}

// RequireToken rejects requests that do not carry "Bearer token".
func (b *Backend) RequireToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// Fail makes endpoint answer with f until Recover is called.
func (b *Backend) Fail(endpoint string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[endpoint] = f
}

// Recover clears an injected failure.
func (b *Backend) Recover(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, endpoint)
}

// Hold blocks requests to endpoint until the returned func is called.
func (b *Backend) Hold(endpoint string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold[endpoint] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.hold[endpoint] == ch {
				delete(b.hold, endpoint)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Updates returns every update received so far.
func (b *Backend) Updates() []Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Update(nil), b.updates...)
}

// Handler assembles the chi router.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Get("/category/all-category", b.gated(EndpointCategories, b.listCategories))
	r.Route("/user", func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/get-user/{id}", b.gated(EndpointGetUser, b.getUser))
		r.Put("/update-user/{id}", b.gated(EndpointUpdateUser, b.updateUser))
	})
	return r
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		token := b.token
		b.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// gated applies Hold and Fail for endpoint before h runs.
func (b *Backend) gated(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ch := b.hold[endpoint]
		b.mu.Unlock()
		if ch != nil {
			select {
			case <-ch:
			case <-r.Context().Done():
				return
			}
		}

		b.mu.Lock()
		f, failing := b.failures[endpoint]
		b.mu.Unlock()
		if failing {
			if f.Message == "" {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(f.Status)
				io.WriteString(w, http.StatusText(f.Status))
				return
			}
			writeMessage(w, f.Status, f.Message)
			return
		}
		h(w, r)
	}
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	list := sdk.CategoryList{Category: append([]sdk.CategoryEntry{}, b.categories...)}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, ok := b.User(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, sdk.UserEnvelope{Success: true, User: u})
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, ok := b.User(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found.")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid form: %v", err))
		return
	}

	var fields sdk.ProfileFields
	if err := json.Unmarshal([]byte(r.FormValue("data")), &fields); err != nil {
		writeMessage(w, http.StatusBadRequest, "data field must be a JSON document")
		return
	}

	rec := Update{UserID: id, Fields: fields, RequestID: r.Header.Get("X-Request-ID")}
	if file, header, err := r.FormFile("file"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "could not read file")
			return
		}
		rec.HasFile = true
		rec.Filename = header.Filename
		rec.FileData = data
		u.Avatar = "/uploads/" + strings.TrimPrefix(header.Filename, "/")
	}

	u.Name = fields.Name
	u.Email = fields.Email
	u.Bio = fields.Bio

	b.mu.Lock()
	b.users[id] = u
	b.updates = append(b.updates, rec)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, sdk.UpdateUserResponse{Message: UpdateSuccessMessage, User: u})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
