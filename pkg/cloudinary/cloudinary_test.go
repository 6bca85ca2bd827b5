package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDKeepsUUIDs(t *testing.T) {
	require.Equal(t, "5b9f0c1e-2a44-4d7e-9a51-0e5a8d2f7c10", PublicID("5b9f0c1e-2a44-4d7e-9a51-0e5a8d2f7c10"))
	require.Equal(t, "user-42", PublicID(" user/42 "))
	require.Empty(t, PublicID("///"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
