package auth

// Package auth contains domain-level types for the demo sign-in flow and the
// persisted session snapshot. It is pure and free of framework/adapter concerns.

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// User-facing messages surfaced by the session manager.
const (
	MsgCredentialsRequired = "Username and password are required"
	MsgInvalidEmail        = "Please enter a valid email address"
	MsgPasswordTooShort    = "Password must be at least 6 characters long"
	MsgInvalidCredentials  = "Invalid email or password. Please check your credentials and try again."
	MsgSignInUnavailable   = "Unable to sign in at this time. Please try again later."
	MsgSessionExpired      = "Session expired. Please sign in again."
	MsgSignOutFailed       = "Failed to sign out properly"
)

// MinPasswordLength is the shortest password accepted before credential matching.
const MinPasswordLength = 6

// ErrorKind classifies a failure surfaced in the session error field.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindStorage        ErrorKind = "storage"
	KindSessionExpired ErrorKind = "session_expired"
	KindInternal       ErrorKind = "internal"
)

// Identity is the signed-in user. Consumers receive copies.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Valid reports whether the identity has every field a snapshot requires.
func (i Identity) Valid() bool {
	return i.ID != 0 && strings.TrimSpace(i.Username) != "" && strings.TrimSpace(i.Name) != ""
}

// Credential is a static demo user record used only for exact matching.
type Credential struct {
	ID       int64
	Username string
	Password string
	Name     string
}

// Identity projects the credential into the public identity shape.
func (c Credential) Identity() Identity {
	return Identity{ID: c.ID, Username: c.Username, Name: c.Name}
}

// Result is the structured outcome of a sign-in attempt.
type Result struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	User    *Identity `json:"user,omitempty"`
}

// Failure builds an unsuccessful result.
func Failure(kind ErrorKind, msg string) Result {
	return Result{Success: false, Error: msg, Kind: kind}
}

// ErrMalformedSnapshot is returned when stored session content cannot be restored.
var ErrMalformedSnapshot = errors.New("malformed session snapshot")

// MarshalSnapshot encodes the identity for durable storage.
func MarshalSnapshot(id Identity) ([]byte, error) {
	return json.Marshal(id)
}

// ParseSnapshot decodes stored content, rejecting anything that is not a valid identity.
func ParseSnapshot(raw []byte) (Identity, error) {
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, errors.Join(ErrMalformedSnapshot, err)
	}
	if !id.Valid() {
		return Identity{}, ErrMalformedSnapshot
	}
	return id, nil
}

// ValidateSignIn checks the sign-in input shape in order: both fields present,
// email-shaped username, minimum password length. It returns the user-facing
// message of the first failed check, or "" when the input may be matched.
func ValidateSignIn(username, password string) string {
	if username == "" || password == "" {
		return MsgCredentialsRequired
	}
	if !strings.Contains(username, "@") {
		return MsgInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return MsgPasswordTooShort
	}
	return ""
}

// DefaultCredentials are the demo users available when none are configured.
func DefaultCredentials() []Credential {
	return []Credential{
		{ID: 1, Username: "demo@bank.com", Password: "demo123", Name: "John Doe"},
		{ID: 2, Username: "test@bank.com", Password: "test123", Name: "Jane Smith"},
	}
}
