package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccountRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateAccountRequest
		wantErr string
		wantCur string
	}{
		{name: "valid", req: CreateAccountRequest{Name: "Checking", Currency: "usd"}, wantCur: "USD"},
		{name: "currency defaults", req: CreateAccountRequest{Name: "Savings"}, wantCur: "USD"},
		{name: "empty name", req: CreateAccountRequest{Name: "  "}, wantErr: "name is required"},
		{name: "long name", req: CreateAccountRequest{Name: strings.Repeat("a", 256)}, wantErr: "cannot exceed"},
		{name: "bad currency length", req: CreateAccountRequest{Name: "x", Currency: "EURO"}, wantErr: "three letter"},
		{name: "bad currency chars", req: CreateAccountRequest{Name: "x", Currency: "U$D"}, wantErr: "three letter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCur, tt.req.Currency)
		})
	}
}
