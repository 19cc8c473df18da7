package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/domain"
)

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		in         any
		wantFields map[string]string
	}{
		{
			name: "valid",
			in:   domain.RegisterInput{EventID: "ev", AccountID: "acc", ParticipantName: "Ann"},
		},
		{
			name: "missing participant name",
			in:   domain.RegisterInput{EventID: "ev", AccountID: "acc"},
			wantFields: map[string]string{
				"participant_name": "is required",
			},
		},
		{
			name: "bad gender and url",
			in: domain.AccountProfileUpdate{
				Gender:    genderPtr("X"),
				AvatarURL: strPtr("not a url"),
			},
			wantFields: map[string]string{
				"gender":     "must be one of M F O",
				"avatar_url": "must be a valid URL",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(context.Background(), tt.in)
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantFields, ve.FieldErrors)
		})
	}
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "participant_name", snakeCase("ParticipantName"))
	assert.Equal(t, "event_id", snakeCase("EventID"))
	assert.Equal(t, "avatar_url", snakeCase("AvatarURL"))
	assert.Equal(t, "title", snakeCase("Title"))
}

func strPtr(s string) *string { return &s }

func genderPtr(s string) *domain.Gender {
	g := domain.Gender(s)
	return &g
}
