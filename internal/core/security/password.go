// Package security holds the credential hasher and the token issuer.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// ErrUnsupportedCost is returned when HASH_COST_FACTOR cannot be interpreted.
var ErrUnsupportedCost = errors.New("unsupported hash cost factor")

const argonPrefix = "argon2id"

// Default Argon2id parameters, used when the cost factor is the bare
// "argon2id" identifier.
var defaultArgon = argonParams{time: 3, memory: 64 * 1024, threads: 1}

const (
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Upper bounds on parameters read back from a stored digest. Memory is in KiB.
const (
	argonMaxMemory = 1024 * 1024
	argonMaxTime   = 64
)

// bcryptMaxBytes is the longest input bcrypt accepts.
const bcryptMaxBytes = 72

// Cost is a parsed cost factor setting. A numeric setting is a bcrypt work
// factor; anything else is kept verbatim in Raw for the primitive to decode.
type Cost struct {
	Rounds int
	Raw    string
}

// ParseCost interprets a configured cost factor. Numeric strings become
// Rounds; non-numeric strings pass through unchanged. An empty setting means
// the bcrypt default.
func ParseCost(s string) Cost {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Cost{Rounds: bcrypt.DefaultCost}
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return Cost{Rounds: n}
	}
	return Cost{Raw: s}
}

// Numeric reports whether the cost is a bcrypt work factor.
func (c Cost) Numeric() bool {
	return c.Raw == ""
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// PasswordHasher hashes with bcrypt for numeric cost factors and with
// Argon2id when the cost factor names it. Verification follows the digest
// format, so hashes written under an older setting keep verifying.
type PasswordHasher struct {
	cost  Cost
	argon *argonParams
}

// NewPasswordHasher builds a hasher from the configured cost factor.
func NewPasswordHasher(costFactor string) (*PasswordHasher, error) {
	cost := ParseCost(costFactor)
	h := &PasswordHasher{cost: cost}

	if cost.Numeric() {
		if cost.Rounds > bcrypt.MaxCost {
			return nil, fmt.Errorf("%w: bcrypt work factor %d exceeds %d", ErrUnsupportedCost, cost.Rounds, bcrypt.MaxCost)
		}
		return h, nil
	}

	params, err := parseArgonParam(cost.Raw)
	if err != nil {
		return nil, err
	}
	h.argon = &params
	return h, nil
}

// Cost returns the parsed cost factor.
func (h *PasswordHasher) Cost() Cost {
	return h.cost
}

// Hash returns a salted one-way digest of plaintext. Under bcrypt a
// plaintext longer than 72 bytes yields domain.ErrPasswordTooLong.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if h.argon != nil {
		return hashArgon(plaintext, *h.argon)
	}
	if len(plaintext) > bcryptMaxBytes {
		return "", domain.ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost.Rounds)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	if strings.HasPrefix(digest, "$"+argonPrefix+"$") {
		ok, err := verifyArgon(plaintext, digest)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// parseArgonParam accepts "argon2id" or "argon2id$m=<KiB>,t=<iter>,p=<threads>".
func parseArgonParam(raw string) (argonParams, error) {
	name, rest, hasParams := strings.Cut(strings.TrimSpace(raw), "$")
	if !strings.EqualFold(name, argonPrefix) {
		return argonParams{}, fmt.Errorf("%w: %q", ErrUnsupportedCost, raw)
	}
	if !hasParams {
		return defaultArgon, nil
	}

	var p argonParams
	if _, err := fmt.Sscanf(rest, "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argonParams{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedCost, raw, err)
	}
	if err := p.check(); err != nil {
		return argonParams{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedCost, raw, err)
	}
	return p, nil
}

// check rejects parameters argon2.IDKey would panic on or that would make a
// single verification unreasonably expensive.
func (p argonParams) check() error {
	switch {
	case p.time == 0 || p.memory == 0 || p.threads == 0:
		return errors.New("zero parameter")
	case p.memory > argonMaxMemory:
		return fmt.Errorf("memory %d KiB exceeds %d", p.memory, argonMaxMemory)
	case p.time > argonMaxTime:
		return fmt.Errorf("time %d exceeds %d", p.time, argonMaxTime)
	}
	return nil
}

// hashArgon emits PHC format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func hashArgon(plaintext string, p argonParams) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.time, p.memory, p.threads, argonKeyLen)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix,
		argon2.Version,
		p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon(plaintext, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, errors.New("invalid PHC hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var p argonParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}
	if err := p.check(); err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}
	if len(key) == 0 {
		return false, errors.New("empty hash")
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, p.time, p.memory, p.threads, uint32(len(key))) //nolint:gosec // key length fits uint32
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}
