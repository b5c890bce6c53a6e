package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCategory(t *testing.T) {
	p := DefaultPolicy()

	tests := map[string]Category{
		"email":          Email,
		"contactEmail":   Email,
		"first_name":     FirstName,
		"firstName":      FirstName,
		"prenom":         FirstName,
		"lastName":       LastName,
		"username":       Username,
		"fileName":       Word,
		"companyName":    Company,
		"dateOfBirth":    DateOfBirth,
		"ssn":            NationalID,
		"phone_number":   Phone,
		"tel":            Phone,
		"ip_address":     IPAddress,
		"street":         Street,
		"address":        Address,
		"city":           City,
		"zip":            PostalCode,
		"country":        Country,
		"website":        URL,
		"name":           Name,
		"notes":          FreeText,
		"title":          Title,
		"createdAt":      DateTime,
		"created_at":     DateTime,
		"birth_date":     DateOfBirth,
		"start_date":     Date,
		"expiryDate":     Date,
		"date":           Date,
		"age":            Age,
		"isActive":       Boolean,
		"enabled":        Boolean,
		"price":          Number,
		"quantity":       Integer,
		"id":             Integer,
		"userId":         Integer,
		"@id":            Integer,
		"card_number":    CreditCard,
		"password":       Secret,
	}
	for key, want := range tests {
		t.Run(key, func(t *testing.T) {
			got, ok := p.KeyCategory(key)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	for _, key := range []string{"island", "history", "foo", "hotel", "candidate", "validate", "mandate", "update", ""} {
		_, ok := p.KeyCategory(key)
		assert.Falsef(t, ok, "key %q should not match", key)
	}
}

func TestShapeCategory(t *testing.T) {
	p := DefaultPolicy()

	tests := map[string]Category{
		"x@example.com":                        Email,
		"550e8400-e29b-41d4-a716-446655440000": UUID,
		"123-45-6789":                          NationalID,
		"1 85 05 78 006 084 36":                NationalID,
		"4111 1111 1111 1111":                  CreditCard,
		"192.168.0.1":                          IPAddress,
		"2024-01-15T10:30:00Z":                 DateTime,
		"2024-01-15":                           Date,
		"+1 (555) 010-9999":                    Phone,
		"0612345678":                           Phone,
		"https://example.com/a":                URL,
		"call me at +33 6 12 34 56 78 please":  FreeText,
	}
	for value, want := range tests {
		t.Run(value, func(t *testing.T) {
			got, ok := p.ShapeCategory(value)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	for _, value := range []string{"hello", "4111 1111 1111 1112", "1234567", "", "plain words here"} {
		_, ok := p.ShapeCategory(value)
		assert.Falsef(t, ok, "value %q should not match", value)
	}
}

func TestInferPrecedence(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		in     Signals
		want   Category
		source Source
	}{
		{
			name:   "format beats key",
			in:     Signals{Key: "phone", Value: "", SchemaType: "string", SchemaFormat: "email"},
			want:   Email,
			source: SourceSchema,
		},
		{
			name:   "key beats value shape",
			in:     Signals{Key: "email", Value: "2024-01-01"},
			want:   Email,
			source: SourceKey,
		},
		{
			name:   "value shape when key is silent",
			in:     Signals{Key: "contact", Value: "a@b.io"},
			want:   Email,
			source: SourceValue,
		},
		{
			name:   "schema type vetoes incompatible key",
			in:     Signals{Key: "age", SchemaType: "string"},
			want:   Word,
			source: SourceSchema,
		},
		{
			name:   "string example vetoes numeric key",
			in:     Signals{Key: "id", Value: "abc"},
			want:   Word,
			source: SourceValue,
		},
		{
			name:   "integer example",
			in:     Signals{Key: "weird", Value: int64(3)},
			want:   Integer,
			source: SourceValue,
		},
		{
			name:   "placeholder",
			in:     Signals{Key: "contact", Value: "@phone"},
			want:   Phone,
			source: SourceValue,
		},
		{
			name:   "nothing known",
			in:     Signals{Key: "zzz", Value: nil},
			want:   Unknown,
			source: SourceDefault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Infer(tt.in)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.source, got.Source)
		})
	}
}

func TestWithKeyRules(t *testing.T) {
	rule, err := NewKeyRule(`^matricule$`, NationalID)
	require.NoError(t, err)

	p := DefaultPolicy().WithKeyRules(rule)
	got, ok := p.KeyCategory("matricule")
	require.True(t, ok)
	assert.Equal(t, NationalID, got)

	_, ok = DefaultPolicy().KeyCategory("matricule")
	assert.False(t, ok)
}

func TestCategoryNames(t *testing.T) {
	for _, c := range All() {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	assert.True(t, Email.Sensitive())
	assert.False(t, UUID.Sensitive())
	assert.Equal(t, "integer", Age.JSONType())
	assert.True(t, Integer.Compatible("number"))
	assert.False(t, Number.Compatible("integer"))
}
