// Package auth guards the dashboard: argon2id password hashes, hidden
// terminal prompts, and expiring bearer tokens for web sessions.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/term"
)

var (
	// ErrInvalidHash is wrapped by every failure to parse a stored hash.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrEmptyPassword is returned when the user enters an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrPasswordMismatch is returned when password confirmation doesn't match.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNoTerminal is returned when a password prompt has no terminal to
	// read from.
	ErrNoTerminal = errors.New("stdin is not a terminal; set TASKDECK_PASSWORD or server.password_hash")
)

// Params are the argon2id cost parameters recorded in every hash.
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams are used for new hashes.
var DefaultParams = Params{Memory: 64 * 1024, Time: 3, Threads: 4, KeyLen: 32}

const saltLength = 16

// passwordHash is a parsed "$argon2id$v=19$m=..,t=..,p=..$<salt>$<key>".
type passwordHash struct {
	Params
	salt []byte
	key  []byte
}

func (h passwordHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

func (h passwordHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.Time, h.Memory, h.Threads, uint32(len(h.key)))
}

// HashPassword returns the encoded argon2id hash of password, salted
// freshly on every call.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	h := passwordHash{Params: DefaultParams, salt: salt}
	h.key = argon2.IDKey([]byte(password), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	return h.String(), nil
}

// VerifyPassword reports whether password matches encodedHash. Any hash
// parameters are accepted, so hashes made with other costs keep working.
func VerifyPassword(password, encodedHash string) (bool, error) {
	h, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// CheckHash validates the format of an encoded hash without a password.
func CheckHash(encodedHash string) error {
	_, err := parseHash(encodedHash)
	return err
}

func parseHash(encoded string) (passwordHash, error) {
	invalid := func(format string, args ...any) (passwordHash, error) {
		return passwordHash{}, fmt.Errorf("%w: %s", ErrInvalidHash, fmt.Sprintf(format, args...))
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return invalid("expected 6 $-separated fields, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return invalid("algorithm %q is not argon2id", parts[1])
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return invalid("missing version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return invalid("unsupported version %q", version)
	}

	var h passwordHash
	for _, field := range strings.Split(parts[3], ",") {
		name, value, _ := strings.Cut(field, "=")
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return invalid("bad parameter %q", field)
		}
		switch name {
		case "m":
			h.Memory = uint32(n)
		case "t":
			h.Time = uint32(n)
		case "p":
			if n > 255 {
				return invalid("bad parameter %q", field)
			}
			h.Threads = uint8(n)
		default:
			return invalid("unknown parameter %q", field)
		}
	}
	if h.Memory == 0 || h.Time == 0 || h.Threads == 0 {
		return invalid("parameters %q incomplete", parts[3])
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return invalid("salt: %v", err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return invalid("key: %v", err)
	}
	if len(h.key) == 0 {
		return invalid("empty key")
	}
	h.KeyLen = uint32(len(h.key))
	return h, nil
}

// PromptPassword reads a password from the terminal without echo. The
// prompt goes to stderr so stdout stays clean for command output.
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}
	return readPassword(os.Stderr, prompt, func() ([]byte, error) { return term.ReadPassword(fd) })
}

func readPassword(w io.Writer, prompt string, read func() ([]byte, error)) (string, error) {
	fmt.Fprint(w, prompt)
	password, err := read()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// PromptAndConfirmPassword asks for the dashboard password twice and
// returns it if both entries match.
func PromptAndConfirmPassword() (string, error) {
	return promptAndConfirm(PromptPassword)
}

func promptAndConfirm(prompt func(string) (string, error)) (string, error) {
	password, err := prompt("Enter dashboard password: ")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}

	confirm, err := prompt("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
