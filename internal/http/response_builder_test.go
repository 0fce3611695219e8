package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expenses/internal/core"
)

func TestHTMXResponse_Fragment(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusUnprocessableEntity).
		BodyHTML("<p>dialog</p>").
		Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "<p>dialog</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestHTMXResponse_TagEditEvents(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTagsUpdated(core.TagRemove, 3).
		TriggerSuccessNotification("Updated 3 transactions").
		Write(w)

	var events map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	updated, ok := events["tags:updated"]
	if !ok {
		t.Fatal("tags:updated missing")
	}
	if updated["op"] != "remove" || updated["count"] != float64(3) {
		t.Errorf("tags:updated = %v", updated)
	}
	note := events["show-notification"]
	if note["type"] != "success" || note["message"] != "Updated 3 transactions" || note["duration"] != float64(3000) {
		t.Errorf("show-notification = %v", note)
	}
}

func TestHTMXResponse_LastNotificationWins(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerSuccessNotification("ok").
		TriggerErrorNotification("Tag edit failed").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"type":"error"`) || strings.Contains(trigger, `"type":"success"`) {
		t.Errorf("HX-Trigger = %s", trigger)
	}
}

func TestHTMXResponse_PushURL(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().PushURL("/edit?tagsOp=empty").Write(w)

	if got := w.Header().Get("HX-Push-Url"); got != "/edit?tagsOp=empty" {
		t.Errorf("HX-Push-Url = %q", got)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger set without events")
	}
	if w.Body.Len() != 0 {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		resp       *HTMXResponse
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			resp:       BadRequestError("Select at least one transaction"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error" role="alert">Select at least one transaction</div>`,
		},
		{
			name:       "conflict",
			resp:       ConflictError("Already submitting"),
			wantStatus: http.StatusConflict,
			wantBody:   `<div class="error" role="alert">Already submitting</div>`,
		},
		{
			name:       "internal server error",
			resp:       InternalServerError("Templates not loaded"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error" role="alert">Templates not loaded</div>`,
		},
		{
			name:       "too many requests",
			resp:       ErrorResponse(http.StatusTooManyRequests, "slow down"),
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `<div class="error" role="alert">slow down</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.resp.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError(`invalid dialog session "<script>"`).Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}
