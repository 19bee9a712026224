package web

import (
	"context"
	"html/template"
	"net/http"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/site"
)

// Notices shown by the plain form flow.
const (
	rateLimitedNotice = "You have sent several messages in a short time. " +
		"Please wait a minute and try again."

	incompleteNotice = "Please fill in every field correctly before " +
		"sending."
)

// PageData holds common data for page templates.
type PageData struct {
	Title      string
	Path       string
	DrawerOpen bool

	Navbar    site.Navbar
	Footer    site.Footer
	Sticky    site.Link
	Copyright string

	// Copy is the rendered Markdown of the page.
	Copy template.HTML

	// Contact page only.
	Form   *contact.Snapshot
	Fields []FieldView
	Thanks template.HTML
	Notice string
}

// FieldView is one input of the contact form.
type FieldView struct {
	Name        string
	Placeholder string
	Type        string
	Value       string
	Hint        string
	Invalid     bool
	Focused     bool
	Full        bool
	Textarea    bool
}

// fieldInputs are the static parts of each input.
var fieldInputs = map[contact.Field]FieldView{
	contact.FieldName: {
		Placeholder: "Your Name", Type: "text",
	},
	contact.FieldPhone: {
		Placeholder: "Phone Number", Type: "tel",
	},
	contact.FieldEmail: {
		Placeholder: "Email Address", Type: "email", Full: true,
	},
	contact.FieldMessage: {
		Placeholder: "Your Message", Textarea: true, Full: true,
	},
}

func fieldViews(snap contact.Snapshot) []FieldView {
	views := make([]FieldView, 0, len(contact.Fields))
	for _, f := range contact.Fields {
		view := fieldInputs[f]
		view.Name = f.String()
		view.Value = snap.Values.Get(f)
		view.Invalid = snap.Invalid[f]
		view.Focused = snap.IsFocused(f)
		view.Hint = contact.Describe(f)
		views = append(views, view)
	}

	return views
}

func (s *Server) pageData(r *http.Request, title, path string) *PageData {
	return &PageData{
		Title:      title,
		Path:       path,
		DrawerOpen: r.URL.Query().Get("menu") == "open",
		Navbar:     s.navbar,
		Footer:     s.footer,
		Sticky:     site.StickyContact,
		Copyright:  s.footer.Copyright(s.cfg.Clock()),
	}
}

// handleHome handles GET /. Every other unmatched path is a 404.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != site.HomePath {
		s.render(w, http.StatusNotFound, "notfound",
			s.pageData(r, "Not Found", r.URL.Path))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if sess := s.sessions.Lookup(r); sess != nil {
		sess.location.NavigateTo(site.HomePath)
	}

	data := s.pageData(r, "Home", site.HomePath)
	data.Copy = s.pages.Get("home")
	s.render(w, http.StatusOK, "home", data)
}

// handleContactPage handles GET and POST /contact.
func (s *Server) handleContactPage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		sess := s.sessions.Ensure(w, r)
		sess.location.NavigateTo(site.ContactPath)

		s.renderContact(w, r, http.StatusOK, sess.form.Snapshot(), "")

	case http.MethodPost:
		s.handleContactPost(w, r)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderContact(w http.ResponseWriter, r *http.Request,
	status int, snap contact.Snapshot, notice string) {

	data := s.pageData(r, "Contact", site.ContactPath)
	data.Copy = s.pages.Get("contact")
	data.Thanks = s.pages.Get("thanks")
	data.Form = &snap
	data.Fields = fieldViews(snap)
	data.Notice = notice

	s.render(w, status, "contact", data)
}

// handleContactPost is the form flow without JavaScript: apply the posted
// values, run the action, wait for the delivery and redirect.
func (s *Server) handleContactPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !sameOrigin(r) {
		http.Error(w, "Cross-origin post", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form data", http.StatusBadRequest)
		return
	}

	sess := s.sessions.Ensure(w, r)
	sess.location.NavigateTo(site.ContactPath)
	form := sess.form

	var (
		snap contact.Snapshot
		err  error
	)
	switch action := r.PostForm.Get("action"); action {
	case "", "submit":
		snap, err = s.applyPostedValues(ctx, form, r)
		if err != nil {
			break
		}

		switch {
		// A repost while the first one is out just waits for it.
		case snap.Pending:
			snap, err = s.awaitDelivery(ctx, form)

		case snap.Summary != nil:

		case !snap.CanSubmit:
			s.renderContact(
				w, r, http.StatusUnprocessableEntity, snap,
				incompleteNotice,
			)
			return

		case !s.allowSubmit(r, "form"):
			s.renderContact(
				w, r, http.StatusTooManyRequests, snap,
				rateLimitedNotice,
			)
			return

		default:
			snap, err = form.Dispatch(ctx, contact.SubmitEvent{})
			if err == nil && snap.Pending {
				snap, err = s.awaitDelivery(ctx, form)
			}
		}

	case "send_another":
		s.countEvent("send_another", "form")
		snap, err = form.Dispatch(ctx, contact.SendAnotherEvent{})

	case "home":
		s.countEvent("back_to_home", "form")
		snap, err = form.Dispatch(ctx, contact.BackToHomeEvent{})

	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	switch {
	case contact.IsClosedErr(err):
		http.Error(w, "Session expired", http.StatusGone)
		return

	case err != nil:
		log.ErrorS(ctx, "Contact form action failed", err)
		http.Error(w, "Bad form data", http.StatusBadRequest)
		return
	}

	log.TraceS(ctx, "Contact form posted", "state", snap.State)

	http.Redirect(w, r, sess.location.CurrentPath(), http.StatusSeeOther)
}

// applyPostedValues dispatches a change for every posted field that differs
// from the form.
func (s *Server) applyPostedValues(ctx context.Context,
	form *contact.Controller, r *http.Request) (contact.Snapshot, error) {

	snap := form.Snapshot()
	for _, f := range contact.Fields {
		values, ok := r.PostForm[f.String()]
		if !ok || len(values) == 0 || values[0] == snap.Values.Get(f) {
			continue
		}

		s.countEvent("change", "form")

		var err error
		snap, err = form.Dispatch(ctx, contact.FieldChangedEvent{
			Field: f, Value: values[0],
		})
		if err != nil {
			return contact.Snapshot{}, err
		}
	}

	return snap, nil
}

// awaitDelivery waits at most SubmitWait for the delivery to resolve. On
// timeout the visitor is redirected to the still pending form.
func (s *Server) awaitDelivery(ctx context.Context,
	form *contact.Controller) (contact.Snapshot, error) {

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitWait)
	defer cancel()

	snap, err := form.AwaitSettled(waitCtx)
	if err != nil {
		log.DebugS(ctx, "Delivery still pending at redirect",
			"reason", err.Error())

		return form.Snapshot(), nil
	}

	return snap, nil
}

// allowSubmit spends a limiter token for the client and counts the submit.
func (s *Server) allowSubmit(r *http.Request, origin string) bool {
	s.countEvent("submit", origin)

	if s.limiter.Allow(clientHost(r)) {
		return true
	}

	s.metrics.RateLimited.Inc()
	log.InfoS(r.Context(), "Contact submit rate limited",
		"client", clientHost(r))

	return false
}

func (s *Server) countEvent(kind, origin string) {
	s.metrics.Events.WithLabelValues(kind, origin).Inc()
}
