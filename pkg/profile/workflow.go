// Package profile implements the profile editor: validation, avatar preview,
// multipart submission and reconciliation of the session store with the
// server's record.
package profile

import (
	"context"
	"errors"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/terraconstructs/blogdesk/pkg/fetch"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
	"github.com/terraconstructs/blogdesk/pkg/session"
)

// Phase is a workflow state.
type Phase int

const (
	PhaseViewing Phase = iota
	PhaseEditing
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "viewing"
	}
}

const (
	// GenericFailureMessage is shown when a failure carries no readable message.
	GenericFailureMessage = "Could not update profile. Please try again."
	// DefaultSuccessMessage is shown when the server returns no message.
	DefaultSuccessMessage = "Profile updated."
)

var (
	ErrBusy      = errors.New("profile update in progress")
	ErrClosed    = errors.New("profile workflow closed")
	ErrNoProfile = errors.New("no profile to update")
)

// Notifier surfaces transient, toast-style messages.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Backend is the part of *sdk.Client the workflow depends on.
type Backend interface {
	NewUserFetcher() *fetch.Fetcher[sdk.UserEnvelope]
	GetUserRequest(id string) fetch.Request
	UpdateUser(ctx context.Context, id string, fields sdk.ProfileFields, file *sdk.Upload) (*sdk.UpdateUserResponse, error)
}

// Snapshot is what a UI renders.
type Snapshot struct {
	Phase   Phase
	Draft   Draft
	Profile *sdk.UserProfile
	Load    fetch.State[sdk.UserEnvelope]
	Errors  []FieldError
	Avatar  string
	Pending bool
	Message string
}

// Workflow drives one profile editor instance. Close releases its resources.
type Workflow struct {
	backend  Backend
	store    *session.Store
	notifier Notifier
	user     *fetch.Fetcher[sdk.UserEnvelope]
	unsub    func()

	mu        sync.Mutex
	phase     Phase
	draft     Draft
	profile   *sdk.UserProfile
	load      fetch.State[sdk.UserEnvelope]
	errors    []FieldError
	pending   *PendingUpload
	message   string
	closed    bool
	observers map[int]func(Snapshot)
	nextID    int

	publishMu sync.Mutex
}

// New creates a workflow in PhaseViewing. The draft starts from the session
// user when one is present.
func New(backend Backend, store *session.Store, notifier Notifier) *Workflow {
	w := &Workflow{
		backend:   backend,
		store:     store,
		notifier:  notifier,
		user:      backend.NewUserFetcher(),
		observers: make(map[int]func(Snapshot)),
	}
	if u, ok := store.Read().User(); ok {
		w.draft = DraftFrom(u)
	}
	w.unsub = w.user.Subscribe(w.onLoad)
	return w
}

// Load points the workflow at userID. Nothing is requested while userID is empty.
func (w *Workflow) Load(ctx context.Context, userID string) {
	w.user.Set(ctx, w.backend.GetUserRequest(userID))
}

// WaitLoaded blocks until the current load settles.
func (w *Workflow) WaitLoaded(ctx context.Context) (fetch.State[sdk.UserEnvelope], error) {
	return w.user.Wait(ctx)
}

func (w *Workflow) onLoad(st fetch.State[sdk.UserEnvelope]) {
	w.mutate(func() error {
		if w.closed {
			return ErrClosed
		}
		w.load = st
		if st.Status == fetch.StatusSuccess && st.Data.Success {
			u := st.Data.User
			w.profile = &u
			if w.phase == PhaseViewing {
				w.draft = DraftFrom(u)
			}
		}
		return nil
	})
}

// Snapshot returns the current render state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Observe registers fn for every transition. fn must not call mutating
// methods synchronously.
func (w *Workflow) Observe(fn func(Snapshot)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.observers[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.observers, id)
	}
}

// DisplayedAvatar is the pending preview if one exists, otherwise the stored avatar.
func (w *Workflow) DisplayedAvatar() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.avatarLocked()
}

// Edit replaces the draft and enters PhaseEditing. From a terminal phase
// this also acknowledges the previous outcome.
func (w *Workflow) Edit(d Draft) error {
	return w.mutate(func() error {
		if err := w.editableLocked(); err != nil {
			return err
		}
		w.phase = PhaseEditing
		w.draft = d
		w.errors = nil
		w.message = ""
		return nil
	})
}

// SelectImage creates a local preview for file. It replaces, and releases,
// any previous selection. No network call is made.
func (w *Workflow) SelectImage(file sdk.Upload) error {
	next, err := NewPendingUpload(file)
	if err != nil {
		return err
	}

	var prev *PendingUpload
	err = w.mutate(func() error {
		if err := w.editableLocked(); err != nil {
			return err
		}
		prev = w.pending
		w.pending = next
		w.phase = PhaseEditing
		w.message = ""
		return nil
	})
	if err != nil {
		next.Release()
		return err
	}
	prev.Release()
	return nil
}

// ClearImage drops the pending selection.
func (w *Workflow) ClearImage() error {
	var prev *PendingUpload
	err := w.mutate(func() error {
		if err := w.editableLocked(); err != nil {
			return err
		}
		prev = w.pending
		w.pending = nil
		return nil
	})
	if err != nil {
		return err
	}
	return prev.Release()
}

// Acknowledge returns a finished workflow to PhaseViewing.
func (w *Workflow) Acknowledge() {
	w.mutate(func() error {
		if w.phase != PhaseSucceeded && w.phase != PhaseFailed {
			return ErrBusy
		}
		w.phase = PhaseViewing
		w.message = ""
		return nil
	})
}

// Submit validates the draft and, when it passes, sends it together with the
// pending upload. A *ValidationError means nothing was sent.
func (w *Workflow) Submit(ctx context.Context) (*sdk.UpdateUserResponse, error) {
	var (
		id     string
		fields sdk.ProfileFields
		file   *sdk.Upload
		vErr   *ValidationError
	)

	err := w.mutate(func() error {
		if err := w.editableLocked(); err != nil {
			return err
		}
		w.phase = PhaseValidating
		w.errors = nil
		w.message = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = w.mutate(func() error {
		if w.closed {
			return ErrClosed
		}
		if errs := Validate(w.draft); len(errs) > 0 {
			w.phase = PhaseEditing
			w.errors = errs
			vErr = &ValidationError{Errors: errs}
			return nil
		}
		id = w.userIDLocked()
		if id == "" {
			w.phase = PhaseEditing
			return nil
		}
		fields = w.draft.Fields()
		if w.pending != nil {
			f := w.pending.File
			file = &f
		}
		w.phase = PhaseSubmitting
		return nil
	})
	if err != nil {
		return nil, err
	}
	if vErr != nil {
		slogctx.Debug(ctx, "profile draft rejected", "errors", len(vErr.Errors))
		return nil, vErr
	}
	if id == "" {
		return nil, ErrNoProfile
	}

	slogctx.Debug(ctx, "submitting profile update", "user_id", id, "with_file", file != nil)
	resp, err := w.backend.UpdateUser(ctx, id, fields, file)
	if err != nil {
		w.fail(ctx, err)
		return nil, err
	}
	w.succeed(ctx, resp)
	return resp, nil
}

func (w *Workflow) succeed(ctx context.Context, resp *sdk.UpdateUserResponse) {
	// The server record goes into the store before anyone can observe Succeeded.
	user := resp.User
	w.store.SetAuthenticated(user)

	msg := resp.Message
	if msg == "" {
		msg = DefaultSuccessMessage
	}

	var released *PendingUpload
	err := w.mutate(func() error {
		if w.closed {
			return ErrClosed
		}
		released = w.pending
		w.pending = nil
		w.profile = &user
		w.draft = DraftFrom(user)
		w.phase = PhaseSucceeded
		w.message = msg
		return nil
	})
	if err != nil {
		return
	}
	if rErr := released.Release(); rErr != nil {
		slogctx.Warn(ctx, "failed to release avatar preview", "error", rErr)
	}
	if w.notifier != nil {
		w.notifier.Success(msg)
	}
}

func (w *Workflow) fail(ctx context.Context, cause error) {
	msg := failureMessage(cause)
	slogctx.Debug(ctx, "profile update failed", "error", cause)

	err := w.mutate(func() error {
		if w.closed {
			return ErrClosed
		}
		w.phase = PhaseFailed
		w.message = msg
		return nil
	})
	if err != nil {
		return
	}
	if w.notifier != nil {
		w.notifier.Error(msg)
	}
}

func failureMessage(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return GenericFailureMessage
}

// Close cancels any in-flight load, ignores late completions and releases the preview.
func (w *Workflow) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	pending := w.pending
	w.pending = nil
	clear(w.observers)
	w.mu.Unlock()

	w.unsub()
	w.user.Close()
	return pending.Release()
}

// mutate applies fn under the lock and, when it succeeds, delivers the new
// snapshot to observers in mutation order.
func (w *Workflow) mutate(fn func() error) error {
	w.publishMu.Lock()
	defer w.publishMu.Unlock()

	w.mu.Lock()
	if err := fn(); err != nil {
		w.mu.Unlock()
		return err
	}
	snap := w.snapshotLocked()
	obs := make([]func(Snapshot), 0, len(w.observers))
	for _, o := range w.observers {
		obs = append(obs, o)
	}
	w.mu.Unlock()

	for _, o := range obs {
		o(snap)
	}
	return nil
}

func (w *Workflow) editableLocked() error {
	if w.closed {
		return ErrClosed
	}
	if w.phase == PhaseValidating || w.phase == PhaseSubmitting {
		return ErrBusy
	}
	return nil
}

func (w *Workflow) userIDLocked() string {
	if w.profile != nil && w.profile.ID != "" {
		return w.profile.ID
	}
	if u, ok := w.store.Read().User(); ok {
		return u.ID
	}
	return ""
}

func (w *Workflow) avatarLocked() string {
	if w.pending != nil {
		return w.pending.PreviewURI
	}
	if w.profile != nil {
		return w.profile.Avatar
	}
	if u, ok := w.store.Read().User(); ok {
		return u.Avatar
	}
	return ""
}

func (w *Workflow) snapshotLocked() Snapshot {
	var profile *sdk.UserProfile
	if w.profile != nil {
		p := *w.profile
		profile = &p
	}
	return Snapshot{
		Phase:   w.phase,
		Draft:   w.draft,
		Profile: profile,
		Load:    w.load,
		Errors:  append([]FieldError(nil), w.errors...),
		Avatar:  w.avatarLocked(),
		Pending: w.pending != nil,
		Message: w.message,
	}
}
