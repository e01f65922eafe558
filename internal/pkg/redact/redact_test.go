package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in, want string
	}{
		{"alice@example.com", "al***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@b.com", "***@b.com"},
		{"no-at-sign", "***"},
		{"a@b@c", "***"},
		{"user@", "***"},
		{"", "***"},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.want, Email(tc.in), "input %q", tc.in)
	}
}

func TestToken_StableFingerprint(t *testing.T) {
	t.Parallel()

	tok := "eyJhbGciOiJIUzI1NiJ9.payload.signature"

	fp := Token(tok)
	require.True(t, strings.HasPrefix(fp, "sha256:"))
	require.Len(t, fp, len("sha256:")+8)
	require.Equal(t, fp, Token(tok))
	require.NotEqual(t, fp, Token(tok+"x"))
	require.NotContains(t, fp, "payload")

	require.Equal(t, "-", Token(""))
}
