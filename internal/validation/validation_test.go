package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/staffhub/internal/apperrors"
)

type sample struct {
	ChannelID string `json:"channelId" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE"`
	Name      string `json:"name" validate:"notblank"`
	Reason    string `json:"reason" validate:"max=5"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"valid", sample{ChannelID: "c", Status: "AVAILABLE", Name: "x"}, ""},
		{"missing", sample{Status: "AVAILABLE", Name: "x"}, "channelId is required"},
		{"oneof", sample{ChannelID: "c", Status: "BUSY", Name: "x"}, "status must be one of [AVAILABLE UNAVAILABLE]"},
		{"blank", sample{ChannelID: "c", Status: "AVAILABLE", Name: "   "}, "name is required"},
		{"too long", sample{ChannelID: "c", Status: "AVAILABLE", Name: "x", Reason: "abcdefg"}, "reason must be at most 5 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
		})
	}
}
