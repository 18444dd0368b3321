package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name     string
		id       UserID
		username string
		wantName string
		wantErr  error
	}{
		{name: "valid", id: "u1", username: "Alice", wantName: "Alice"},
		{name: "trimmed", id: "u1", username: "  Bob ", wantName: "Bob"},
		{name: "empty name falls back to id", id: "u1", username: "", wantName: "u1"},
		{name: "empty id", id: "", username: "x", wantErr: ErrUserIDEmpty},
		{name: "long id", id: UserID(strings.Repeat("a", MaxUserIDLen+1)), wantErr: ErrUserIDTooLong},
		{name: "long name", id: "u1", username: strings.Repeat("n", MaxUsernameLen+1), wantErr: ErrUsernameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.id, tt.username)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, u.ID)
			assert.Equal(t, tt.wantName, u.Username)
		})
	}
}

func TestTruncateUsername(t *testing.T) {
	assert.Equal(t, "short", TruncateUsername(" short "))
	long := strings.Repeat("é", MaxUsernameLen) // 2 bytes per rune
	got := TruncateUsername(long)
	assert.LessOrEqual(t, len(got), MaxUsernameLen)
	assert.Equal(t, strings.Repeat("é", MaxUsernameLen/2), got)
}

func TestRoomIDValidate(t *testing.T) {
	assert.ErrorIs(t, RoomID("").Validate(), ErrRoomIDEmpty)
	assert.ErrorIs(t, RoomID(strings.Repeat("r", MaxRoomIDLen+1)).Validate(), ErrRoomIDTooLong)
	assert.NoError(t, RoomID("R1").Validate())
}
