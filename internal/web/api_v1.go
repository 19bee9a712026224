package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/site"
)

// APIResponse wraps API responses with data and optional metadata.
type APIResponse struct {
	Data any      `json:"data"`
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIMeta carries request metadata.
type APIMeta struct {
	Session string `json:"session,omitempty"`
	Time    string `json:"time"`
}

// APIError represents an API error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error details.
type APIErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ContactEventRequest is the body of POST /api/v1/contact/events.
type ContactEventRequest struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// ContactEventResponse is the form after an event. Redirect is set when the
// event moved the visitor to another page.
type ContactEventResponse struct {
	Form     contact.Snapshot `json:"form"`
	Redirect string           `json:"redirect,omitempty"`
}

// errUnknownEventType is returned for an unrecognised event type.
var errUnknownEventType = errors.New("unknown event type")

// registerAPIV1Routes registers all /api/v1/ routes.
func (s *Server) registerAPIV1Routes() {
	// CORS middleware for API routes. Only the site's own pages may call
	// the API with the visitor's cookie.
	corsMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !sameOrigin(r) {
				w.Header().Set("Content-Type", "application/json")
				writeError(w, http.StatusForbidden, "forbidden_origin",
					"Cross-origin requests are not allowed")
				return
			}

			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials",
					"true")
				w.Header().Set("Vary", "Origin")
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}

	// JSON middleware for API routes.
	jsonMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next(w, r)
		}
	}

	// Combine middlewares.
	api := func(handler http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(jsonMiddleware(handler))
	}

	s.mux.HandleFunc("/api/v1/health", api(s.handleAPIV1Health))
	s.mux.HandleFunc("/api/v1/contact", api(s.handleAPIV1Contact))
	s.mux.HandleFunc(
		"/api/v1/contact/events", api(s.handleAPIV1ContactEvents),
	)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("Error encoding JSON response: %v", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{
		Error: APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// meta describes the request. sess may be nil.
func (s *Server) meta(sess *session) *APIMeta {
	m := &APIMeta{Time: s.cfg.Clock().UTC().Format(time.RFC3339)}
	if sess != nil {
		m.Session = sess.id
	}

	return m
}

// handleAPIV1Health handles GET /api/v1/health.
func (s *Server) handleAPIV1Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"time":     s.cfg.Clock().UTC().Format(time.RFC3339),
		"sessions": s.sessions.Len(),
	})
}

// handleAPIV1Contact handles GET /api/v1/contact. Without a session it
// returns a fresh form and starts nothing; the first event starts one.
func (s *Server) handleAPIV1Contact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Method not allowed")
		return
	}

	sess := s.sessions.Lookup(r)
	if sess == nil {
		writeJSON(w, http.StatusOK, APIResponse{
			Data: contact.EmptySnapshot(s.cfg.Validator),
			Meta: s.meta(nil),
		})
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Data: sess.form.Snapshot(),
		Meta: s.meta(sess),
	})
}

// handleAPIV1ContactEvents handles POST /api/v1/contact/events.
func (s *Server) handleAPIV1ContactEvents(w http.ResponseWriter,
	r *http.Request) {

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Method not allowed")
		return
	}

	var req ContactEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"Invalid JSON body")
		return
	}

	event, err := parseContactEvent(req)
	switch {
	case errors.Is(err, contact.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "invalid_field", err.Error())
		return

	case err != nil:
		writeError(w, http.StatusBadRequest, "unknown_event", err.Error())
		return
	}

	ctx := r.Context()
	sess := s.sessions.Ensure(w, r)
	sess.location.NavigateTo(site.ContactPath)

	if _, ok := event.(contact.SubmitEvent); ok {
		snap := sess.form.Snapshot()
		if snap.CanSubmit && !s.allowSubmit(r, "api") {
			writeError(w, http.StatusTooManyRequests, "rate_limited",
				rateLimitedNotice)
			return
		}
	} else {
		s.countEvent(req.Type, "api")
	}

	snap, err := sess.form.Dispatch(ctx, event)
	switch {
	case contact.IsClosedErr(err):
		writeError(w, http.StatusGone, "session_expired",
			"The contact form has expired, reload the page")
		return

	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	resp := ContactEventResponse{Form: snap}
	if path := sess.location.CurrentPath(); path != site.ContactPath {
		resp.Redirect = path
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Data: resp,
		Meta: s.meta(sess),
	})
}

// parseContactEvent maps an API request onto a form event.
func parseContactEvent(req ContactEventRequest) (contact.FormEvent, error) {
	switch req.Type {
	case "change":
		f, err := contact.ParseField(req.Field)
		if err != nil {
			return nil, err
		}

		return contact.FieldChangedEvent{Field: f, Value: req.Value}, nil

	case "focus":
		f, err := contact.ParseField(req.Field)
		if err != nil {
			return nil, err
		}

		return contact.FocusEvent{Field: f}, nil

	case "blur":
		return contact.BlurEvent{}, nil

	case "submit":
		return contact.SubmitEvent{}, nil

	case "send_another":
		return contact.SendAnotherEvent{}, nil

	case "back_to_home":
		return contact.BackToHomeEvent{}, nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownEventType, req.Type)
}
