package user_test

import (
	"encoding/json"
	"testing"

	"filetree-service/internal/model/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserModel(t *testing.T) {
	t.Run("HasPassword", func(t *testing.T) {
		hash := "$2a$10$abc"
		empty := ""

		assert.True(t, (&user.User{PasswordHash: &hash}).HasPassword())
		assert.False(t, (&user.User{PasswordHash: &empty}).HasPassword())
		assert.False(t, (&user.User{}).HasPassword())
	})

	t.Run("password hash never serialized", func(t *testing.T) {
		hash := "$2a$10$abc"
		u := user.User{ID: uuid.New(), Email: "test@example.com", PasswordHash: &hash}

		raw, err := json.Marshal(u)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), hash)
		assert.Contains(t, string(raw), "test@example.com")
	})
}
