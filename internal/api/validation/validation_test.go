package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Slug     string  `json:"slug" validate:"omitempty,slug"`
	Domain   *string `json:"domain" validate:"omitempty,domain"`
	Color    string  `json:"color" validate:"omitempty,hexcolor"`
	Role     string  `json:"role" validate:"omitempty,oneof=ADMIN MANAGER"`
	Items    []item  `json:"items" validate:"dive"`
}

type item struct {
	Position int `json:"position" validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	bad := "not a domain"
	tests := []struct {
		name string
		in   sample
		want map[string]string
	}{
		{
			name: "valid",
			in:   sample{Email: "a@example.com", Password: "longenough", Slug: "acme-co", Color: "#ff0000", Role: "ADMIN"},
			want: nil,
		},
		{
			name: "missing",
			in:   sample{},
			want: map[string]string{"email": "email is required", "password": "password is required"},
		},
		{
			name: "formats",
			in: sample{
				Email: "nope", Password: "short", Slug: "Acme Co", Domain: &bad, Color: "red", Role: "OWNER",
				Items: []item{{Position: -1}},
			},
			want: map[string]string{
				"email":             "Invalid email format",
				"password":          "password must be at least 8 characters",
				"slug":              "slug may contain lowercase letters, digits and dashes",
				"domain":            "Invalid domain format",
				"color":             "color must be a hex color",
				"role":              "role must be one of: ADMIN, MANAGER",
				"items[0].position": "position must be 0 or greater",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Struct(tt.in))
		})
	}
}

func TestIsValidDomain(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		valid  bool
	}{
		{"valid_simple", "example.com", true},
		{"valid_subdomain", "crm.example.com", true},
		{"valid_dash", "my-domain.com", true},
		{"invalid_no_tld", "example", false},
		{"invalid_dash_start", "-example.com", false},
		{"invalid_underscore", "exam_ple.com", false},
		{"too_long", string(make([]byte, 255)) + ".com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidDomain(tt.domain), "Domain: %s", tt.domain)
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello\nworld", SanitizeString("hel\x00lo\n\x07world"))
	assert.Equal(t, "tab\there", SanitizeString("tab\there"))
}
