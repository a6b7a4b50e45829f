// Package credentials provides the demo credential matcher. It is a placeholder
// for a real identity provider and performs plain exact matching.
package credentials

import (
	"context"

	domainauth "github.com/target/demobank-api/internal/domain/auth"
)

// StaticMatcher matches against a fixed list of credential records.
type StaticMatcher struct {
	records []domainauth.Credential
}

// NewStaticMatcher copies the records so later mutation by the caller has no effect.
func NewStaticMatcher(records []domainauth.Credential) *StaticMatcher {
	return &StaticMatcher{records: append([]domainauth.Credential(nil), records...)}
}

// Match returns the identity of the first record whose username and password
// are exactly equal to the inputs.
func (m *StaticMatcher) Match(ctx context.Context, username, password string) (domainauth.Identity, bool, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.Identity{}, false, err
	}
	for _, rec := range m.records {
		if rec.Username == username && rec.Password == password {
			return rec.Identity(), true, nil
		}
	}
	return domainauth.Identity{}, false, nil
}

// Len reports how many records are configured.
func (m *StaticMatcher) Len() int { return len(m.records) }
