package httpx

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/target/demobank-api/internal/errors"
)

// parseLimit reads the optional limit query param. Absent means zero, which the
// services treat as "use the default".
func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.ValidationField("limit", "limit must be an integer")
	}
	if n < 0 {
		return 0, apperrors.ValidationField("limit", "limit must be non-negative")
	}
	return n, nil
}
