//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxAccountNameLen = 255
	// DefaultAccountsLimit is the page size used when the caller does not ask for one.
	DefaultAccountsLimit = 20
)

// Account is a bank account row as exposed by the accounts proxy.
type Account struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Balance   float64   `json:"balance"    db:"balance"`
	Currency  string    `json:"currency"   db:"currency"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AccountsListOptions controls paging for listing accounts. Results are always
// ordered by created_at descending.
type AccountsListOptions struct {
	Limit int
}

// CreateAccountRequest is the input for inserting an account (dev seeding).
type CreateAccountRequest struct {
	Name     string  `json:"name"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Validate normalizes and validates CreateAccountRequest.
func (r *CreateAccountRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Name) > maxAccountNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = "USD"
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be a three letter ISO code")
	}
	for _, c := range r.Currency {
		if c < 'A' || c > 'Z' {
			return errors.New("currency must be a three letter ISO code")
		}
	}
	return nil
}
