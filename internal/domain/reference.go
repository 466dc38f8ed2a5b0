package domain

import "context"

// Category globally divides events; one category per event.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Template provides the HTML embed code for a type of video or stream.
// Variables referenced by the content are filled per event.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Location is the venue of an event, carrying the IANA timezone used to
// normalize wall-clock input on the event forms.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Tag is a flexible label; events can have multiple tags.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryRepository defines storage for categories. Deleting a category
// nulls event references rather than deleting events.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}

// TemplateRepository defines storage for templates.
type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context) ([]*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id string) error
}

// LocationRepository defines storage for locations.
type LocationRepository interface {
	Create(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, id string) (*Location, error)
	List(ctx context.Context) ([]*Location, error)
	Update(ctx context.Context, l *Location) error
	Delete(ctx context.Context, id string) error
}

// TagRepository defines storage for tags and event–tag links.
type TagRepository interface {
	// EnsureByName resolves a tag by name, creating it if missing.
	EnsureByName(ctx context.Context, name string) (*Tag, error)
	// SearchByPrefix returns up to limit tags whose name starts with the
	// query, case-insensitively.
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]*Tag, error)
	// SetEventTags replaces the event's tag links with the given tag IDs.
	SetEventTags(ctx context.Context, eventID string, tagIDs []string) error
	ListByEventID(ctx context.Context, eventID string) ([]*Tag, error)
}

// TimezoneLookup is the JSON body of the location→timezone helper
// endpoint used to auto-fill the timezone field on event forms.
type TimezoneLookup struct {
	Timezone string `json:"timezone"`
}

// ReferenceService defines the business logic for the simple reference
// entities attached to events.
type ReferenceService interface {
	CreateCategory(ctx context.Context, actor *User, c *Category) error
	UpdateCategory(ctx context.Context, actor *User, c *Category) error
	DeleteCategory(ctx context.Context, actor *User, id string) error
	ListCategories(ctx context.Context) ([]*Category, error)

	CreateTemplate(ctx context.Context, actor *User, t *Template) error
	UpdateTemplate(ctx context.Context, actor *User, t *Template) error
	DeleteTemplate(ctx context.Context, actor *User, id string) error
	ListTemplates(ctx context.Context) ([]*Template, error)

	// CreateLocation validates the location's timezone name before
	// storing it.
	CreateLocation(ctx context.Context, actor *User, l *Location) error
	UpdateLocation(ctx context.Context, actor *User, l *Location) error
	DeleteLocation(ctx context.Context, actor *User, id string) error
	ListLocations(ctx context.Context) ([]*Location, error)
	// LookupTimezone returns the timezone of the given location.
	LookupTimezone(ctx context.Context, locationID string) (*TimezoneLookup, error)

	// AutocompleteTags returns up to limit tag names starting with the
	// query; the query itself is echoed first so new tags can be created
	// from the form.
	AutocompleteTags(ctx context.Context, query string, limit int) ([]string, error)
}
