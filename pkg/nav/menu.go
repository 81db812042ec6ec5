// Package nav derives the role-gated navigation menu.
package nav

import (
	"github.com/terraconstructs/blogdesk/pkg/sdk"
	"github.com/terraconstructs/blogdesk/pkg/session"
)

// Section groups menu items.
type Section string

const (
	SectionBase       Section = "base"
	SectionContent    Section = "content"
	SectionAdmin      Section = "admin"
	SectionCategories Section = "categories"
)

// Item is one navigable entry.
type Item struct {
	Label   string
	Route   string
	Section Section
}

// Menu is the ordered list of entries a session may see.
type Menu struct {
	Items []Item
}

// Section returns the items of s, in menu order.
func (m Menu) Section(s Section) []Item {
	var out []Item
	for _, it := range m.Items {
		if it.Section == s {
			out = append(out, it)
		}
	}
	return out
}

// Has reports whether route is present.
func (m Menu) Has(route string) bool {
	for _, it := range m.Items {
		if it.Route == route {
			return true
		}
	}
	return false
}

var (
	home    = Item{Label: "Home", Route: "/", Section: SectionBase}
	content = []Item{
		{Label: "Blogs", Route: "/blog", Section: SectionContent},
		{Label: "Comments", Route: "/comments", Section: SectionContent},
	}
	admin = []Item{
		{Label: "Categories", Route: "/categories", Section: SectionAdmin},
		{Label: "Users", Route: "/users", Section: SectionAdmin},
	}
)

// CategoryRoute is the route of a category listing.
func CategoryRoute(slug string) string {
	return "/blog/" + slug
}

// Build is pure: the same session and categories always give the same menu.
// Categories keep backend order.
func Build(s session.Session, categories []sdk.CategoryEntry) Menu {
	items := make([]Item, 0, 1+len(content)+len(admin)+len(categories))
	items = append(items, home)
	if s.IsAuthenticated() {
		items = append(items, content...)
	}
	if s.IsAdmin() {
		items = append(items, admin...)
	}
	for _, c := range categories {
		items = append(items, Item{Label: c.Name, Route: CategoryRoute(c.Slug), Section: SectionCategories})
	}
	return Menu{Items: items}
}
