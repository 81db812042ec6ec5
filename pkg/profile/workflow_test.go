package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/blogdesk/internal/mockapi"
	"github.com/terraconstructs/blogdesk/pkg/fetch"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
	"github.com/terraconstructs/blogdesk/pkg/session"
)

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errs      []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, msg)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.errs)
}

type fixture struct {
	backend  *mockapi.Backend
	client   *sdk.Client
	store    *session.Store
	notifier *recordingNotifier
	wf       *Workflow
	srv      *httptest.Server
}

var reader = sdk.UserProfile{ID: "123", Name: "Ada", Email: "ada@example.com", Bio: "hello", Avatar: "old.png", Role: sdk.RoleReader}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := mockapi.New()
	backend.PutUser(reader)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	store := session.NewStore()
	store.SetAuthenticated(reader)

	f := &fixture{
		backend:  backend,
		client:   sdk.NewClient(srv.URL),
		store:    store,
		notifier: &recordingNotifier{},
		srv:      srv,
	}
	f.wf = New(f.client, store, f.notifier)
	t.Cleanup(func() { f.wf.Close() })
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.wf.Load(context.Background(), reader.ID)
	st, err := f.wf.WaitLoaded(context.Background())
	require.NoError(t, err)
	require.Equal(t, fetch.StatusSuccess, st.Status)
}

func TestWorkflow_LoadResetsDraft(t *testing.T) {
	f := newFixture(t)
	f.backend.PutUser(sdk.UserProfile{ID: reader.ID, Name: "Ada Server", Email: "ada@example.com", Bio: "from server", Avatar: "old.png"})

	f.load(t)

	snap := f.wf.Snapshot()
	assert.Equal(t, PhaseViewing, snap.Phase)
	assert.Equal(t, "Ada Server", snap.Draft.Name)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "old.png", snap.Avatar)
}

func TestWorkflow_LoadWithoutIDStaysIdle(t *testing.T) {
	f := newFixture(t)
	f.wf.Load(context.Background(), "")

	st, err := f.wf.WaitLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fetch.StatusIdle, st.Status)
}

func TestWorkflow_ShortNameNeverReachesNetwork(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	require.NoError(t, f.wf.Edit(Draft{Name: "Jo", Email: "a@b.com", Bio: "hello"}))
	_, err := f.wf.Submit(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "name", verr.Errors[0].Field)
	assert.Contains(t, verr.Errors[0].Message, "at least 3 characters")

	assert.Empty(t, f.backend.Updates())
	snap := f.wf.Snapshot()
	assert.Equal(t, PhaseEditing, snap.Phase)
	assert.Len(t, snap.Errors, 1)
	s, e := f.notifier.counts()
	assert.Zero(t, s)
	assert.Zero(t, e)
}

func TestWorkflow_AllViolationsReportedTogether(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.wf.Edit(Draft{Name: "J", Email: "bad", Bio: "x"}))
	_, err := f.wf.Submit(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
	assert.Empty(t, f.backend.Updates())
}

func TestWorkflow_SubmitWithoutFileKeepsAvatar(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	require.NoError(t, f.wf.Edit(Draft{Name: "Ada L", Email: "ada@l.dev", Bio: "updated"}))
	resp, err := f.wf.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mockapi.UpdateSuccessMessage, resp.Message)

	updates := f.backend.Updates()
	require.Len(t, updates, 1)
	assert.False(t, updates[0].HasFile)

	got, ok := f.store.Read().User()
	require.True(t, ok)
	assert.Equal(t, "old.png", got.Avatar)

	// the stored record is exactly what the server returned
	server, _ := f.backend.User(reader.ID)
	assert.Equal(t, server, got)
	assert.Equal(t, resp.User, got)

	snap := f.wf.Snapshot()
	assert.Equal(t, PhaseSucceeded, snap.Phase)
	assert.Equal(t, mockapi.UpdateSuccessMessage, snap.Message)

	s, e := f.notifier.counts()
	assert.Equal(t, 1, s)
	assert.Zero(t, e)
}

func TestWorkflow_StoreReconciledBeforeSucceededIsObserved(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	var mu sync.Mutex
	var namesAtSuccess []string
	f.wf.Observe(func(s Snapshot) {
		if s.Phase != PhaseSucceeded {
			return
		}
		u, _ := f.store.Read().User()
		mu.Lock()
		namesAtSuccess = append(namesAtSuccess, u.Name)
		mu.Unlock()
	})

	require.NoError(t, f.wf.Edit(Draft{Name: "Server Name", Email: "ada@example.com", Bio: "hello"}))
	_, err := f.wf.Submit(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Server Name"}, namesAtSuccess)
}

func TestWorkflow_SubmitWithFile(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	require.NoError(t, f.wf.SelectImage(sdk.Upload{Filename: "new.png", Data: pngHeader}))
	snap := f.wf.Snapshot()
	assert.Equal(t, PhaseEditing, snap.Phase)
	assert.True(t, snap.Pending)
	preview := f.wf.DisplayedAvatar()
	assert.Contains(t, preview, "file://")
	path := previewPath(t, preview)

	// preview has no effect on stored state
	u, _ := f.store.Read().User()
	assert.Equal(t, "old.png", u.Avatar)

	_, err := f.wf.Submit(context.Background())
	require.NoError(t, err)

	updates := f.backend.Updates()
	require.Len(t, updates, 1)
	assert.True(t, updates[0].HasFile)
	assert.Equal(t, pngHeader, updates[0].FileData)

	u, _ = f.store.Read().User()
	assert.Equal(t, "/uploads/new.png", u.Avatar)
	assert.Equal(t, "/uploads/new.png", f.wf.DisplayedAvatar())
	assert.False(t, f.wf.Snapshot().Pending)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkflow_ReplacingImageReleasesPrevious(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.wf.SelectImage(sdk.Upload{Filename: "a.png", Data: pngHeader}))
	first := previewPath(t, f.wf.DisplayedAvatar())

	require.NoError(t, f.wf.SelectImage(sdk.Upload{Filename: "b.png", Data: pngHeader}))
	second := previewPath(t, f.wf.DisplayedAvatar())

	_, err := os.Stat(first)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(second)
	assert.NoError(t, err)

	require.NoError(t, f.wf.ClearImage())
	_, err = os.Stat(second)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "old.png", f.wf.DisplayedAvatar())
}

func TestWorkflow_FailureKeepsDraftAndStore(t *testing.T) {
	tests := []struct {
		name    string
		failure mockapi.Failure
		wantMsg string
	}{
		{
			name:    "server message",
			failure: mockapi.Failure{Status: http.StatusConflict, Message: "Email already in use."},
			wantMsg: "Email already in use.",
		},
		{
			name:    "no server message",
			failure: mockapi.Failure{Status: http.StatusBadGateway},
			wantMsg: "Error: Bad Gateway, 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.load(t)
			f.backend.Fail(mockapi.EndpointUpdateUser, tt.failure)

			draft := Draft{Name: "Ada L", Email: "ada@l.dev", Bio: "updated"}
			require.NoError(t, f.wf.Edit(draft))
			require.NoError(t, f.wf.SelectImage(sdk.Upload{Filename: "new.png", Data: pngHeader}))

			_, err := f.wf.Submit(context.Background())
			require.Error(t, err)

			snap := f.wf.Snapshot()
			assert.Equal(t, PhaseFailed, snap.Phase)
			assert.Equal(t, draft, snap.Draft)
			assert.True(t, snap.Pending)
			assert.Equal(t, tt.wantMsg, snap.Message)

			u, _ := f.store.Read().User()
			assert.Equal(t, reader, u)

			s, e := f.notifier.counts()
			assert.Zero(t, s)
			assert.Equal(t, 1, e)
			assert.Equal(t, []string{tt.wantMsg}, f.notifier.errs)

			// resubmission after the backend recovers needs no retyping
			f.backend.Recover(mockapi.EndpointUpdateUser)
			_, err = f.wf.Submit(context.Background())
			require.NoError(t, err)
			u, _ = f.store.Read().User()
			assert.Equal(t, "Ada L", u.Name)
		})
	}
}

func TestWorkflow_TransportFailure(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.srv.Close()

	_, err := f.wf.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, f.wf.Snapshot().Phase)
	assert.Equal(t, []string{fetch.TransportFailureMessage}, f.notifier.errs)
}

type failingBackend struct {
	*sdk.Client
}

func (failingBackend) UpdateUser(context.Context, string, sdk.ProfileFields, *sdk.Upload) (*sdk.UpdateUserResponse, error) {
	return nil, errors.New("encoder exploded")
}

func TestWorkflow_GenericFailureMessage(t *testing.T) {
	store := session.NewStore()
	store.SetAuthenticated(reader)
	notifier := &recordingNotifier{}
	wf := New(failingBackend{sdk.NewClient("http://unused.test")}, store, notifier)
	defer wf.Close()

	_, err := wf.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{GenericFailureMessage}, notifier.errs)
}

func TestWorkflow_BusyWhileSubmitting(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	release := f.backend.Hold(mockapi.EndpointUpdateUser)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := f.wf.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.wf.Snapshot().Phase == PhaseSubmitting
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, f.wf.Edit(Draft{Name: "Other"}), ErrBusy)
	_, err := f.wf.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	release()
	require.NoError(t, <-done)
	assert.Len(t, f.backend.Updates(), 1)
}

func TestWorkflow_AcknowledgeReturnsToViewing(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	_, err := f.wf.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, PhaseSucceeded, f.wf.Snapshot().Phase)

	f.wf.Acknowledge()
	assert.Equal(t, PhaseViewing, f.wf.Snapshot().Phase)

	// acknowledging outside a terminal phase changes nothing
	require.NoError(t, f.wf.Edit(Draft{Name: "Ada", Email: "ada@example.com", Bio: "again"}))
	f.wf.Acknowledge()
	assert.Equal(t, PhaseEditing, f.wf.Snapshot().Phase)
}

func TestWorkflow_NoProfileToUpdate(t *testing.T) {
	backend := mockapi.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	wf := New(sdk.NewClient(srv.URL), session.NewStore(), &recordingNotifier{})
	defer wf.Close()

	require.NoError(t, wf.Edit(Draft{Name: "Ada", Email: "ada@example.com", Bio: "hello"}))
	_, err := wf.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.Empty(t, backend.Updates())
}

func TestWorkflow_CloseReleasesPreview(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.wf.SelectImage(sdk.Upload{Filename: "a.png", Data: pngHeader}))
	path := previewPath(t, f.wf.DisplayedAvatar())

	require.NoError(t, f.wf.Close())
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, f.wf.Edit(Draft{}), ErrClosed)
	_, err = f.wf.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, f.wf.Close())
}
