package sdk

// Role is the authorization role attached to a user.
type Role string

const (
	RoleReader Role = "reader"
	RoleAdmin  Role = "admin"
)

// UserProfile is the backend's user record. Identity is ID; every other field
// is replaced wholesale on update.
type UserProfile struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Bio    string `json:"bio"`
	Avatar string `json:"avatar"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CategoryEntry is a read-only blog category.
type CategoryEntry struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CategoryList is the payload of GET /category/all-category.
type CategoryList struct {
	Category []CategoryEntry `json:"category"`
}

// UserEnvelope is the payload of GET /user/get-user/:id.
type UserEnvelope struct {
	Success bool        `json:"success"`
	User    UserProfile `json:"user"`
}

// UpdateUserResponse is the success payload of PUT /user/update-user/:id.
type UpdateUserResponse struct {
	Message string      `json:"message"`
	User    UserProfile `json:"user"`
}

// ProfileFields is the JSON document sent in the "data" multipart field.
type ProfileFields struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
}

// Upload is a binary file attached to a profile update.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
