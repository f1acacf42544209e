package auth

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast; production uses DefaultHashParams.
var testParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "secret1"

	hash, err := HashPassword(password, testParams)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("wrong", hash)
	req.NoError(err)
	req.False(match)
}

func TestHash_Is_Salted(t *testing.T) {
	req := require.New(t)
	h1, err := HashPassword("same", testParams)
	req.NoError(err)
	h2, err := HashPassword("same", testParams)
	req.NoError(err)
	req.NotEqual(h1, h2)
}

func TestComparePassword_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	_, err := ComparePassword("secret1", "plaintext")
	req.Error(err)
	_, err = ComparePassword("secret1", "$argon2id$v=19$m=x$y$z")
	req.Error(err)
}

func TestCipher_RoundTrip(t *testing.T) {
	req := require.New(t)
	key, err := GenerateKey()
	req.NoError(err)
	c, err := NewCipher(key)
	req.NoError(err)

	ciphertext, err := c.Encrypt("hi")
	req.NoError(err)
	req.NotEqual("hi", ciphertext)

	plaintext, err := c.Decrypt(ciphertext)
	req.NoError(err)
	req.Equal("hi", plaintext)

	// Same plaintext, fresh nonce
	other, err := c.Encrypt("hi")
	req.NoError(err)
	req.NotEqual(ciphertext, other)
}

func TestCipher_Rejects_Tampering_And_Bad_Keys(t *testing.T) {
	req := require.New(t)
	_, err := NewCipher("c2hvcnQ=")
	req.ErrorIs(err, errors.ErrInvalidKey)

	key, err := GenerateKey()
	req.NoError(err)
	c, err := NewCipher(key)
	req.NoError(err)

	_, err = c.Decrypt("not base64 !!")
	req.ErrorIs(err, errors.ErrInvalidCiphertext)

	ciphertext, err := c.Encrypt("hello")
	req.NoError(err)
	tampered := []byte(ciphertext)
	tampered[len(tampered)-3] ^= 0x01
	_, err = c.Decrypt(string(tampered))
	req.Error(err)
}

func TestProtector(t *testing.T) {
	req := require.New(t)
	key, err := GenerateKey()
	req.NoError(err)
	c, err := NewCipher(key)
	req.NoError(err)
	p := NewProtector(c, testParams)

	hash, err := p.Hash("secret1")
	req.NoError(err)
	ok, err := p.Verify("secret1", hash)
	req.NoError(err)
	req.True(ok)

	ciphertext, err := p.Encrypt("hi")
	req.NoError(err)
	plaintext, err := p.Decrypt(ciphertext)
	req.NoError(err)
	req.Equal("hi", plaintext)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     domain.RegisterCommand
		wantErr bool
	}{
		{"Valid request", domain.RegisterCommand{Username: "alice", Password: "secret1"}, false},
		{"Valid with email", domain.RegisterCommand{Username: "alice", Password: "secret1", Email: lo.ToPtr("alice@example.com")}, false},
		{"Missing username", domain.RegisterCommand{Password: "secret1"}, true},
		{"Username with space", domain.RegisterCommand{Username: "al ice", Password: "secret1"}, true},
		{"Username too long", domain.RegisterCommand{Username: strings.Repeat("a", 33), Password: "secret1"}, true},
		{"Missing password", domain.RegisterCommand{Username: "alice"}, true},
		{"Password too long", domain.RegisterCommand{Username: "alice", Password: strings.Repeat("a", 73)}, true},
		{"Invalid email", domain.RegisterCommand{Username: "alice", Password: "secret1", Email: lo.ToPtr("notanemail")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.cmd)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidRegistration)
			} else {
				req.NoError(err)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!", DefaultHashParams)
	}
}
