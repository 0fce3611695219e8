package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"expenses/internal/core"
)

// Events the browser listens for through the HX-Trigger header.
const (
	eventTagsUpdated  = "tags:updated"
	eventNotification = "show-notification"
)

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// notification is the payload of a show-notification event; static/app.js
// renders it as a toast.
type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

type tagsUpdated struct {
	Op    core.TagEditOp `json:"op"`
	Count int            `json:"count"`
}

// HTMXResponse collects the status, headers, events and fragment of one
// HTMX answer and writes them in the right order.
type HTMXResponse struct {
	status  int
	html    string
	pushURL string
	events  map[string]any
}

func NewHTMXResponse() *HTMXResponse {
	return &HTMXResponse{status: http.StatusOK, events: map[string]any{}}
}

func (b *HTMXResponse) Status(code int) *HTMXResponse {
	b.status = code
	return b
}

func (b *HTMXResponse) BodyHTML(html string) *HTMXResponse {
	b.html = html
	return b
}

// PushURL sets HX-Push-Url so the browser history follows the search.
func (b *HTMXResponse) PushURL(url string) *HTMXResponse {
	b.pushURL = url
	return b
}

// Trigger adds an event to HX-Trigger. A later event with the same name
// replaces the earlier one.
func (b *HTMXResponse) Trigger(name string, data any) *HTMXResponse {
	b.events[name] = data
	return b
}

// TriggerTagsUpdated makes the results table reload after a tag edit.
func (b *HTMXResponse) TriggerTagsUpdated(op core.TagEditOp, count int) *HTMXResponse {
	return b.Trigger(eventTagsUpdated, tagsUpdated{Op: op, Count: count})
}

func (b *HTMXResponse) TriggerSuccessNotification(message string) *HTMXResponse {
	return b.Trigger(eventNotification, notification{Type: NotificationSuccess, Message: message, Duration: 3000})
}

func (b *HTMXResponse) TriggerErrorNotification(message string) *HTMXResponse {
	return b.Trigger(eventNotification, notification{Type: NotificationError, Message: message, Duration: 5000})
}

func (b *HTMXResponse) Write(w http.ResponseWriter) {
	h := w.Header()
	if b.html != "" {
		h.Set("Content-Type", "text/html; charset=utf-8")
	}
	if b.pushURL != "" {
		h.Set("HX-Push-Url", b.pushURL)
	}
	if len(b.events) > 0 {
		if raw, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(b.status)
	if b.html != "" {
		_, _ = w.Write([]byte(b.html))
	}
}

// ErrorResponse renders message as an escaped error fragment.
func ErrorResponse(status int, message string) *HTMXResponse {
	return NewHTMXResponse().
		Status(status).
		BodyHTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusBadRequest, message)
}

func ConflictError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusConflict, message)
}

func InternalServerError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusInternalServerError, message)
}
