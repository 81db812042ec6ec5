package nav

import (
	"context"
	"sync"

	"github.com/terraconstructs/blogdesk/pkg/fetch"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
	"github.com/terraconstructs/blogdesk/pkg/session"
)

// CategorySource is the part of *sdk.Client the sidebar needs.
type CategorySource interface {
	NewCategoryFetcher() *fetch.Fetcher[sdk.CategoryList]
	CategoriesRequest() fetch.Request
}

// Sidebar keeps a Menu in step with the session store and the category
// listing. Every change re-derives the menu before listeners are called.
type Sidebar struct {
	store      *session.Store
	categories *fetch.Fetcher[sdk.CategoryList]
	unsubs     []func()

	mu        sync.Mutex
	sess      session.Session
	cats      []sdk.CategoryEntry
	catState  fetch.State[sdk.CategoryList]
	menu      Menu
	listeners map[int]func(Menu)
	nextID    int
	closed    bool

	publishMu sync.Mutex
}

// NewSidebar subscribes to store and starts loading categories.
func NewSidebar(ctx context.Context, src CategorySource, store *session.Store) *Sidebar {
	sb := &Sidebar{
		store:      store,
		categories: src.NewCategoryFetcher(),
		listeners:  make(map[int]func(Menu)),
	}

	// subscribe before reading so a write in between is not missed
	sb.unsubs = append(sb.unsubs,
		store.Subscribe(sb.onSession),
		sb.categories.Subscribe(sb.onCategories),
	)
	sb.rederive(func() { sb.sess = store.Read() })
	sb.categories.Set(ctx, src.CategoriesRequest())
	return sb
}

// Menu returns the current derivation.
func (sb *Sidebar) Menu() Menu {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.menu
}

// Categories returns the state of the category listing.
func (sb *Sidebar) Categories() fetch.State[sdk.CategoryList] {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.catState
}

// Subscribe registers fn for every re-derived menu.
func (sb *Sidebar) Subscribe(fn func(Menu)) func() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	id := sb.nextID
	sb.nextID++
	sb.listeners[id] = fn
	return func() {
		sb.mu.Lock()
		defer sb.mu.Unlock()
		delete(sb.listeners, id)
	}
}

// Refresh re-requests the category listing.
func (sb *Sidebar) Refresh(ctx context.Context) {
	sb.categories.Refetch(ctx)
}

// Wait blocks until the category listing settles.
func (sb *Sidebar) Wait(ctx context.Context) (Menu, error) {
	_, err := sb.categories.Wait(ctx)
	return sb.Menu(), err
}

// Close unsubscribes from the store and tears down the category fetcher.
func (sb *Sidebar) Close() {
	sb.mu.Lock()
	if sb.closed {
		sb.mu.Unlock()
		return
	}
	sb.closed = true
	clear(sb.listeners)
	sb.mu.Unlock()

	for _, u := range sb.unsubs {
		u()
	}
	sb.categories.Close()
}

func (sb *Sidebar) onSession(s session.Session) {
	sb.rederive(func() { sb.sess = s })
}

func (sb *Sidebar) onCategories(st fetch.State[sdk.CategoryList]) {
	sb.rederive(func() {
		sb.catState = st
		// a failed or pending refetch keeps the last good listing
		if st.Status == fetch.StatusSuccess {
			sb.cats = st.Data.Category
		}
	})
}

func (sb *Sidebar) rederive(apply func()) {
	sb.publishMu.Lock()
	defer sb.publishMu.Unlock()

	sb.mu.Lock()
	if sb.closed {
		sb.mu.Unlock()
		return
	}
	apply()
	sb.menu = Build(sb.sess, sb.cats)
	menu := sb.menu
	ls := make([]func(Menu), 0, len(sb.listeners))
	for _, l := range sb.listeners {
		ls = append(ls, l)
	}
	sb.mu.Unlock()

	for _, l := range ls {
		l(menu)
	}
}
