package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

const fastArgon = "argon2id$m=1024,t=1,p=1"

func TestParseCost(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Cost
		numeric bool
	}{
		{name: "numeric", in: "10", want: Cost{Rounds: 10}, numeric: true},
		{name: "numeric with spaces", in: " 12 ", want: Cost{Rounds: 12}, numeric: true},
		{name: "empty uses default", in: "", want: Cost{Rounds: bcrypt.DefaultCost}, numeric: true},
		{name: "non numeric passes through", in: "some-salt", want: Cost{Raw: "some-salt"}},
		{name: "algorithm identifier", in: fastArgon, want: Cost{Raw: fastArgon}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCost(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.numeric, got.Numeric())
		})
	}
}

func TestNewPasswordHasher_RejectsUnknownParameter(t *testing.T) {
	_, err := NewPasswordHasher("some-salt")
	require.ErrorIs(t, err, ErrUnsupportedCost)

	_, err = NewPasswordHasher("argon2id$m=0,t=1,p=1")
	require.ErrorIs(t, err, ErrUnsupportedCost)

	_, err = NewPasswordHasher("99")
	require.ErrorIs(t, err, ErrUnsupportedCost)
}

func TestPasswordHasher_Bcrypt(t *testing.T) {
	h, err := NewPasswordHasher("4")
	require.NoError(t, err)
	assert.Equal(t, 4, h.Cost().Rounds)

	digest, err := h.Hash("Password123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password123!", digest)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)

	assert.True(t, h.Verify("Password123!", digest))
	assert.False(t, h.Verify("Password123?", digest))
}

func TestPasswordHasher_Argon2id(t *testing.T) {
	h, err := NewPasswordHasher(fastArgon)
	require.NoError(t, err)
	assert.Equal(t, fastArgon, h.Cost().Raw)

	digest, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.Contains(t, digest, "$argon2id$v=19$m=1024,t=1,p=1$")

	assert.True(t, h.Verify("correct horse", digest))
	assert.False(t, h.Verify("battery staple", digest))
}

func TestPasswordHasher_SaltedDigestsDiffer(t *testing.T) {
	for _, setting := range []string{"4", fastArgon} {
		h, err := NewPasswordHasher(setting)
		require.NoError(t, err)

		a, err := h.Hash("same")
		require.NoError(t, err)
		b, err := h.Hash("same")
		require.NoError(t, err)

		assert.NotEqual(t, a, b, setting)
		assert.True(t, h.Verify("same", a))
		assert.True(t, h.Verify("same", b))
	}
}

func TestPasswordHasher_VerifiesAcrossFormats(t *testing.T) {
	bc, err := NewPasswordHasher("4")
	require.NoError(t, err)
	ar, err := NewPasswordHasher(fastArgon)
	require.NoError(t, err)

	legacy, err := bc.Hash("rotated")
	require.NoError(t, err)
	modern, err := ar.Hash("rotated")
	require.NoError(t, err)

	assert.True(t, ar.Verify("rotated", legacy))
	assert.True(t, bc.Verify("rotated", modern))
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	h, err := NewPasswordHasher("4")
	require.NoError(t, err)

	for _, digest := range []string{
		"",
		"plain",
		"$argon2id$broken",
		"$argon2id$v=19$m=x$a$b",
		"$argon2id$v=19$m=65536,t=0,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=0$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1024,t=1000000,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$",
	} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("anything", digest), digest)
		}, digest)
	}
}

func TestPasswordHasher_BcryptLengthLimit(t *testing.T) {
	h, err := NewPasswordHasher("4")
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	// Multi-byte runes count by bytes: 25 x 3 bytes = 75.
	_, err = h.Hash(strings.Repeat("€", 25))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	digest, err := h.Hash(strings.Repeat("a", 72))
	require.NoError(t, err)
	assert.True(t, h.Verify(strings.Repeat("a", 72), digest))
}

func TestPasswordHasher_ArgonHasNoLengthLimit(t *testing.T) {
	h, err := NewPasswordHasher(fastArgon)
	require.NoError(t, err)

	long := strings.Repeat("a", 200)
	digest, err := h.Hash(long)
	require.NoError(t, err)
	assert.True(t, h.Verify(long, digest))
}

func TestNewPasswordHasher_RejectsExcessiveArgonParameters(t *testing.T) {
	_, err := NewPasswordHasher("argon2id$m=4294967295,t=1,p=1")
	assert.ErrorIs(t, err, ErrUnsupportedCost)

	_, err = NewPasswordHasher("argon2id$m=1024,t=1000,p=1")
	assert.ErrorIs(t, err, ErrUnsupportedCost)
}
