package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_UnmarshalText(t *testing.T) {
	var s Severity
	require.NoError(t, s.UnmarshalText([]byte(" Warning ")))
	assert.Equal(t, SeverityWarning, s)

	err := s.UnmarshalText([]byte("fatal"))
	require.Error(t, err)
	assert.Equal(t, SeverityWarning, s, "failed parse must not overwrite")
}

func TestNewDraft_Options(t *testing.T) {
	d := NewDraft(SeverityError, "Transfer failed", WithMessage("try again"), WithDuration(2*time.Second), nil)
	assert.Equal(t, SeverityError, d.Type)
	assert.Equal(t, "try again", d.Message)
	require.NotNil(t, d.Duration)
	assert.Equal(t, 2*time.Second, *d.Duration)

	plain := NewDraft(SeverityInfo, "hi")
	assert.Nil(t, plain.Duration)
}

func TestNotification_MarshalJSON(t *testing.T) {
	n := Notification{
		ID:        "1700000000000-abcd1234",
		Type:      SeveritySuccess,
		Title:     "Saved",
		Duration:  5 * time.Second,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1700000000000-abcd1234","type":"success","title":"Saved","duration":5000,"created_at":"2024-01-02T03:04:05Z"}`, string(raw))
}
