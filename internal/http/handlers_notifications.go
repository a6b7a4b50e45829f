package httpx

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/target/demobank-api/internal/domain/notify"
)

// maxDurationMillis is the largest duration that fits in a time.Duration.
const maxDurationMillis = math.MaxInt64 / int64(time.Millisecond)

// NotificationHandlers exposes the per-client notification manager.
type NotificationHandlers struct{}

type createNotificationRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	// Duration is in milliseconds; zero keeps the notification until dismissed.
	Duration *int64 `json:"duration,omitempty"`
}

func (req createNotificationRequest) draft() (notify.Draft, string) {
	d := notify.Draft{
		Title:   strings.TrimSpace(req.Title),
		Message: req.Message,
	}
	if d.Title == "" {
		return d, "title is required"
	}
	if req.Type != "" {
		if err := d.Type.UnmarshalText([]byte(req.Type)); err != nil {
			return d, err.Error()
		}
	}
	if req.Duration != nil {
		if *req.Duration < 0 {
			return d, "duration must be non-negative"
		}
		if *req.Duration > maxDurationMillis {
			return d, "duration is too large"
		}
		dur := time.Duration(*req.Duration) * time.Millisecond
		d.Duration = &dur
	}
	return d, ""
}

// List handles GET /api/notifications.
func (h *NotificationHandlers) List(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	writeData(w, c.Notifications.List())
}

// Create handles POST /api/notifications.
func (h *NotificationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	var req createNotificationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	d, msg := req.draft()
	if msg != "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, Message: msg})
		return
	}

	var id string
	if d.Type == notify.SeverityError {
		// keep the longer error default unless the caller chose a duration
		var opts []notify.Option
		if d.Message != "" {
			opts = append(opts, notify.WithMessage(d.Message))
		}
		if d.Duration != nil {
			opts = append(opts, notify.WithDuration(*d.Duration))
		}
		id = c.Notifications.ShowError(d.Title, opts...)
	} else {
		id = c.Notifications.Enqueue(d)
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Dismiss handles DELETE /api/notifications/{id}.
func (h *NotificationHandlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	c.Notifications.Dequeue(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearAll handles DELETE /api/notifications.
func (h *NotificationHandlers) ClearAll(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	c.Notifications.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
