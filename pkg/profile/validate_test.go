package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		draft      Draft
		wantFields []string
	}{
		{
			name:  "valid",
			draft: Draft{Name: "Joe", Email: "joe@example.com", Bio: "hey"},
		},
		{
			name:       "short name only",
			draft:      Draft{Name: "Jo", Email: "a@b.com", Bio: "hello"},
			wantFields: []string{"name"},
		},
		{
			name:       "empty name",
			draft:      Draft{Email: "a@b.com", Bio: "hello"},
			wantFields: []string{"name"},
		},
		{
			name:       "malformed email",
			draft:      Draft{Name: "Joe", Email: "not-an-email", Bio: "hello"},
			wantFields: []string{"email"},
		},
		{
			name:       "short bio",
			draft:      Draft{Name: "Joe", Email: "a@b.com", Bio: "hi"},
			wantFields: []string{"bio"},
		},
		{
			name:       "all three reported together",
			draft:      Draft{Name: "J", Email: "nope", Bio: ""},
			wantFields: []string{"name", "email", "bio"},
		},
		{
			name:  "multibyte characters count as one",
			draft: Draft{Name: "Zoë", Email: "z@b.com", Bio: "ümlaut"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.draft)
			if len(tt.wantFields) == 0 {
				assert.Empty(t, errs)
				return
			}
			got := make([]string, 0, len(errs))
			for _, fe := range errs {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestValidateMessages(t *testing.T) {
	errs := Validate(Draft{Name: "J", Email: "nope", Bio: "x"})
	require.Len(t, errs, 3)

	verr := &ValidationError{Errors: errs}
	msg, ok := verr.Field("name")
	require.True(t, ok)
	assert.Equal(t, "Name must be at least 3 characters long.", msg)

	msg, ok = verr.Field("email")
	require.True(t, ok)
	assert.Equal(t, "Invalid email address.", msg)

	msg, ok = verr.Field("bio")
	require.True(t, ok)
	assert.Equal(t, "Bio must be at least 3 characters long.", msg)

	assert.Contains(t, verr.Error(), "Invalid email address.")
}
