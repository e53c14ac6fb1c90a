package validation

import (
	"errors"
	"testing"

	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type sample struct {
	Title    string   `json:"title" validate:"required,max=10"`
	Currency string   `json:"currency" validate:"omitempty,len=3"`
	Priority string   `json:"priority" validate:"omitempty,oneof=low high"`
	Email    string   `json:"contact_email" validate:"omitempty,email"`
	Page     int      `query:"page" validate:"min=1"`
	Members  []member `json:"team_members" validate:"dive"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Title: "Deal", Currency: "USD", Priority: "low", Page: 1}))
}

func TestStruct_FieldErrors(t *testing.T) {
	err := Struct(sample{
		Title:    "",
		Currency: "US",
		Priority: "urgent",
		Email:    "nope",
		Page:     0,
		Members:  []member{{UserID: 0}},
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	fields := domain.FieldErrors(err)
	assert.Equal(t, "is required", fields["title"])
	assert.Equal(t, "must be exactly 3 characters", fields["currency"])
	assert.Equal(t, "must be one of: low, high", fields["priority"])
	assert.Equal(t, "must be a valid email address", fields["contact_email"])
	assert.Equal(t, "must be at least 1", fields["page"])
	assert.Equal(t, "is required", fields["team_members[0].user_id"])
}

func TestStruct_MaxLength(t *testing.T) {
	err := Struct(sample{Title: "far too long a title", Page: 1})
	assert.Equal(t, "must be at most 10 characters", domain.FieldErrors(err)["title"])
}

func TestFromError_PassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, boom, FromError(boom))
	assert.NoError(t, FromError(nil))
}
