package web

import (
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/santa/internal/board"
	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

// Cookie names.
const (
	adminCookie   = board.AdminAuthFile
	visitorCookie = board.VisitorIDFile
)

// pageEffects collects the effects a component fires while handling a
// request so the next response can replay them.
type pageEffects struct {
	mu        sync.Mutex
	celebrate string
	navigate  string
}

func (e *pageEffects) Celebrate(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.celebrate = reason
}

func (e *pageEffects) Navigate(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.navigate = path
}

// take returns and clears the collected effects.
func (e *pageEffects) take() (celebrate, navigate string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	celebrate, navigate = e.celebrate, e.navigate
	e.celebrate, e.navigate = "", ""
	return celebrate, navigate
}

// pendingWish is a validated wish waiting on the confirmation page.
type pendingWish struct {
	pending *board.Pending
	fx      *pageEffects
}

// openDialog is a detail view between requests.
type openDialog struct {
	dialog *board.Dialog
	fx     *pageEffects
}

// adminSession is one browser's moderation panel.
type adminSession struct {
	panel *board.Panel

	mu      sync.Mutex
	confirm *board.Confirmation
	report  *board.DeleteReport
	flash   string
}

func (s *adminSession) setFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = msg
}

// --- Home ---

// HandleHome handles GET / with the activity feed. The feed is refreshed
// here when it is older than one poll interval, so it stays current where no
// background poller runs.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	snap := h.feed.Snapshot()
	if !snap.Loaded || time.Since(snap.UpdatedAt) >= h.cfg.FeedPoll() {
		if err := h.feed.Refresh(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("activity feed unavailable")
		}
		snap = h.feed.Snapshot()
	}

	h.renderer.renderPage(w, r, "home", HomePageData{
		PageData: h.renderer.page("Secret Santa", "home"),
		Feed:     snap,
	})
}

// --- Write ---

func (h *Handlers) composer(fx board.Effects) *board.Composer {
	return board.NewComposer(h.local, board.ComposerOptions{
		ChannelURL:      h.cfg.ChannelURL,
		RequireCategory: !h.cfg.OptionalCategory,
		Effects:         fx,
		Logger:          h.log,
	})
}

func (h *Handlers) writePage(draft wish.Draft, fields map[string]string, msg string) WritePageData {
	return WritePageData{
		PageData:        h.renderer.page("Write a wish", "write"),
		Draft:           draft,
		Errors:          fields,
		Message:         msg,
		Categories:      wish.Categories,
		RequireCategory: !h.cfg.OptionalCategory,
	}
}

// HandleWriteForm handles GET /write-wish.
func (h *Handlers) HandleWriteForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "write", h.writePage(wish.Draft{}, nil, ""))
}

// HandleWriteSubmit handles POST /write-wish. A valid draft moves on to the
// confirmation page; nothing is stored yet.
func (h *Handlers) HandleWriteSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form"))
		return
	}
	draft := wish.Draft{
		Wish:     r.PostFormValue("wish"),
		Country:  r.PostFormValue("country"),
		Telegram: r.PostFormValue("telegram"),
		Category: wish.Category(r.PostFormValue("category")),
	}

	fx := &pageEffects{}
	pending, err := h.composer(fx).Submit(draft)
	if err != nil {
		se := errors.As(err)
		fields, _ := se.Details["fields"].(map[string]string)
		h.renderer.renderPageStatus(w, r, se.Status, "write", h.writePage(draft.Normalize(), fields, se.Message))
		return
	}

	token := h.pending.Put(&pendingWish{pending: pending, fx: fx})
	h.renderer.renderPage(w, r, "confirm", ConfirmPageData{
		PageData:   h.renderer.page("Almost there", "write"),
		Token:      token,
		Draft:      pending.Draft,
		ChannelURL: pending.ChannelURL,
	})
}

// HandleWriteConfirm handles POST /write-wish/confirm. A failed store call
// leaves the confirmation page up so the user can try again.
func (h *Handlers) HandleWriteConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	pw, ok := h.pending.Get(token)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("pending wish", token))
		return
	}

	if _, err := pw.pending.Confirm(r.Context()); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			h.pending.Delete(token)
			h.renderer.renderError(w, r, err)
			return
		}
		h.renderer.renderPageStatus(w, r, publicError(err).Status, "confirm", ConfirmPageData{
			PageData:   h.renderer.page("Almost there", "write"),
			Token:      token,
			Draft:      pw.pending.Draft,
			ChannelURL: pw.pending.ChannelURL,
			Message:    publicError(err).Message,
		})
		return
	}
	h.pending.Delete(token)

	// The composer cannot see the HTTP response; its effects travel in the redirect.
	celebrate, navigate := pw.fx.take()
	if navigate == "" {
		navigate = "/wishes"
	}
	h.redirect(w, r, withCelebrate(navigate, celebrate))
}

// HandleWriteCancel handles POST /write-wish/cancel.
func (h *Handlers) HandleWriteCancel(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	if pw, ok := h.pending.Get(token); ok {
		pw.pending.Cancel()
		h.pending.Delete(token)
	}
	h.redirect(w, r, "/write-wish")
}

// --- Browse ---

func (h *Handlers) browser(fx board.Effects) *board.Browser {
	return board.NewBrowser(h.local, board.BrowserOptions{
		PageSize: h.cfg.PageSize,
		Effects:  fx,
		Logger:   h.log,
	})
}

// HandleWishes handles GET /wishes?category=&page=.
func (h *Handlers) HandleWishes(w http.ResponseWriter, r *http.Request) {
	b := h.browser(nil)
	if err := b.SetCategory(r.URL.Query().Get("category")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var msg string
	if err := b.Refresh(r.Context()); err != nil {
		msg = publicError(err).Message
	}
	b.SetPage(parseIntParam(r, "page", 1))
	view := b.View()

	data := WishesPageData{
		PageData:   h.renderer.page("Wishes", "wishes"),
		View:       view,
		Categories: wish.Categories,
		Pages:      pageNumbers(view.Pagination),
		Message:    msg,
	}
	data.Celebrate = celebrateParam(r)
	h.renderer.renderPage(w, r, "wishes", data)
}

// HandleDetail handles GET /wishes/{id}. Every visit starts a new opening of
// the wish; the contact handle stays hidden until reveal.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	fx := &pageEffects{}
	b := h.browser(fx)
	if err := b.Refresh(r.Context()); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	d, err := b.Open(id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	token := h.dialogs.Put(&openDialog{dialog: d, fx: fx})
	h.renderDetail(w, r, token, d, "", "")
}

// HandleReveal handles POST /wishes/{id}/reveal.
func (h *Handlers) HandleReveal(w http.ResponseWriter, r *http.Request) {
	od, token, err := h.dialogFor(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	handle, err := od.dialog.Reveal(r.Context())
	if err != nil {
		h.dialogs.Delete(token)
		h.renderer.renderError(w, r, err)
		return
	}
	celebrate, _ := od.fx.take()
	h.renderDetail(w, r, token, od.dialog, handle, celebrate)
}

// HandleClose handles POST /wishes/{id}/close.
func (h *Handlers) HandleClose(w http.ResponseWriter, r *http.Request) {
	if od, token, err := h.dialogFor(r); err == nil {
		od.dialog.Close()
		h.dialogs.Delete(token)
	}
	h.redirect(w, r, "/wishes")
}

func (h *Handlers) dialogFor(r *http.Request) (*openDialog, string, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return nil, "", err
	}
	token := r.FormValue("token")
	od, ok := h.dialogs.Get(token)
	if !ok || od.dialog.Summary().ID != id {
		return nil, "", errors.NewNotFound("open wish", id)
	}
	return od, token, nil
}

func (h *Handlers) renderDetail(w http.ResponseWriter, r *http.Request, token string, d *board.Dialog, handle, celebrate string) {
	summary := d.Summary()
	data := DetailPageData{
		PageData: h.renderer.page("Wish", "wishes"),
		Token:    token,
		Summary:  summary,
		WishHTML: renderMarkdown(summary.Wish),
		Handle:   handle,
		Revealed: d.Revealed(),
	}
	data.Celebrate = celebrate
	h.renderer.renderPage(w, r, "detail", data)
}

// --- Admin ---

func (h *Handlers) adminFromCookie(r *http.Request) *adminSession {
	c, err := r.Cookie(adminCookie)
	if err != nil {
		return nil
	}
	s, ok := h.admins.Get(c.Value)
	if !ok {
		return nil
	}
	return s
}

// ensureAdmin returns the caller's admin session, starting one if needed.
func (h *Handlers) ensureAdmin(w http.ResponseWriter, r *http.Request) *adminSession {
	if s := h.adminFromCookie(r); s != nil {
		return s
	}
	s := &adminSession{
		panel: board.NewPanel(h.local, board.PanelOptions{
			Password: h.cfg.AdminPassword,
			Session:  &board.MemorySession{},
			Logger:   h.log,
		}),
	}
	token := h.admins.Put(s)
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return s
}

// authedAdmin returns the session when it is logged in. Otherwise it
// redirects to the login form and returns nil.
func (h *Handlers) authedAdmin(w http.ResponseWriter, r *http.Request) *adminSession {
	s := h.adminFromCookie(r)
	if s == nil || !s.panel.Authenticated() {
		h.redirect(w, r, "/admin")
		return nil
	}
	return s
}

// HandleAdmin handles GET /admin.
func (h *Handlers) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{PageData: h.renderer.page("Admin", "admin")}

	s := h.adminFromCookie(r)
	if s == nil || !s.panel.Authenticated() {
		h.renderer.renderPage(w, r, "admin", data)
		return
	}

	if err := s.panel.Refresh(r.Context()); err != nil {
		data.Message = publicError(err).Message
	}

	s.mu.Lock()
	data.Confirm = s.confirm
	data.Report = s.report
	if data.Message == "" {
		data.Message = s.flash
	}
	s.report = nil
	s.flash = ""
	s.mu.Unlock()

	data.State = s.panel.State()
	data.Selected = make(map[int64]bool, len(data.State.Selected))
	for _, id := range data.State.Selected {
		data.Selected[id] = true
	}
	h.renderer.renderPage(w, r, "admin", data)
}

// HandleAdminLogin handles POST /admin/login. A wrong password leaves the
// panel locked and nothing is fetched.
func (h *Handlers) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	s := h.ensureAdmin(w, r)
	err := s.panel.Login(r.Context(), r.FormValue("password"))
	if err != nil && !s.panel.Authenticated() {
		se := publicError(err)
		h.renderer.renderPageStatus(w, r, se.Status, "admin", AdminPageData{
			PageData: h.renderer.page("Admin", "admin"),
			Message:  se.Message,
		})
		return
	}
	if err != nil {
		s.setFlash(publicError(err).Message)
	}
	h.redirect(w, r, "/admin")
}

// HandleAdminLogout handles POST /admin/logout.
func (h *Handlers) HandleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(adminCookie); err == nil {
		if s, ok := h.admins.Get(c.Value); ok {
			if err := s.panel.Logout(); err != nil {
				h.log.Warn().Err(err).Msg("admin logout failed")
			}
		}
		h.admins.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	h.redirect(w, r, "/admin")
}

// HandleAdminToggle handles POST /admin/toggle/{id}.
func (h *Handlers) HandleAdminToggle(w http.ResponseWriter, r *http.Request) {
	s := h.authedAdmin(w, r)
	if s == nil {
		return
	}
	id, err := parseIDParam(r)
	if err == nil {
		err = s.panel.Toggle(id)
	}
	if err != nil {
		s.setFlash(publicError(err).Message)
	}
	h.redirect(w, r, "/admin")
}

// HandleAdminSelectAll handles POST /admin/select-all.
func (h *Handlers) HandleAdminSelectAll(w http.ResponseWriter, r *http.Request) {
	if s := h.authedAdmin(w, r); s != nil {
		s.panel.SelectAll()
		h.redirect(w, r, "/admin")
	}
}

// HandleAdminDeselectAll handles POST /admin/deselect-all.
func (h *Handlers) HandleAdminDeselectAll(w http.ResponseWriter, r *http.Request) {
	if s := h.authedAdmin(w, r); s != nil {
		s.panel.DeselectAll()
		h.redirect(w, r, "/admin")
	}
}

// HandleAdminRequestDelete handles POST /admin/delete/{id}: it asks for
// confirmation before anything is removed.
func (h *Handlers) HandleAdminRequestDelete(w http.ResponseWriter, r *http.Request) {
	s := h.authedAdmin(w, r)
	if s == nil {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		s.setFlash(publicError(err).Message)
		h.redirect(w, r, "/admin")
		return
	}
	h.stageConfirmation(s, func() (*board.Confirmation, error) { return s.panel.RequestDelete(id) })
	h.redirect(w, r, "/admin")
}

// HandleAdminRequestBulkDelete handles POST /admin/bulk-delete.
func (h *Handlers) HandleAdminRequestBulkDelete(w http.ResponseWriter, r *http.Request) {
	s := h.authedAdmin(w, r)
	if s == nil {
		return
	}
	h.stageConfirmation(s, s.panel.RequestBulkDelete)
	h.redirect(w, r, "/admin")
}

func (h *Handlers) stageConfirmation(s *adminSession, request func() (*board.Confirmation, error)) {
	c, err := request()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirm != nil {
		s.confirm.Cancel()
	}
	s.confirm = c
	if err != nil {
		s.flash = publicError(err).Message
	}
}

// HandleAdminConfirm handles POST /admin/confirm.
func (h *Handlers) HandleAdminConfirm(w http.ResponseWriter, r *http.Request) {
	s := h.authedAdmin(w, r)
	if s == nil {
		return
	}

	s.mu.Lock()
	c := s.confirm
	s.confirm = nil
	s.mu.Unlock()

	if c == nil {
		s.setFlash("nothing to confirm")
		h.redirect(w, r, "/admin")
		return
	}

	report, err := c.Confirm(r.Context())
	s.mu.Lock()
	s.report = report
	if err != nil {
		s.flash = publicError(err).Message
	}
	s.mu.Unlock()
	h.redirect(w, r, "/admin")
}

// HandleAdminCancel handles POST /admin/cancel.
func (h *Handlers) HandleAdminCancel(w http.ResponseWriter, r *http.Request) {
	s := h.authedAdmin(w, r)
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.confirm != nil {
		s.confirm.Cancel()
		s.confirm = nil
	}
	s.mu.Unlock()
	h.redirect(w, r, "/admin")
}

// --- Misc ---

// HandleNotFound renders the 404 page.
func (h *Handlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPageStatus(w, r, http.StatusNotFound, "error", ErrorPageData{
		PageData:   h.renderer.page("Not found", ""),
		StatusCode: http.StatusNotFound,
		Message:    "There is no page at " + r.URL.Path,
	})
}

// cookieIDStore keeps the visitor ID in a long-lived cookie. The ID is
// cached so a background report never touches the response.
type cookieIDStore struct {
	w  http.ResponseWriter
	r  *http.Request
	id string
}

func (c *cookieIDStore) Load() (string, error) {
	if c.id != "" {
		return c.id, nil
	}
	ck, err := c.r.Cookie(visitorCookie)
	if err == http.ErrNoCookie {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if ck.Value == "" || len(ck.Value) > ops.MaxVisitorIDLen {
		return "", nil
	}
	c.id = ck.Value
	return c.id, nil
}

func (c *cookieIDStore) Save(id string) error {
	c.id = id
	http.SetCookie(c.w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// trackVisits reports a visit for every full page load. Failures are only logged.
func (h *Handlers) trackVisits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.Header.Get("HX-Request") != "true" {
			t := board.NewTracker(h.local.ForClient(r.RemoteAddr), &cookieIDStore{w: w, r: r}, h.log)
			t.VisitorID()
			t.ReportAsync(r.Context())
		}
		next.ServeHTTP(w, r)
	})
}

// redirect sends a 303 to path, or HX-Redirect for htmx requests.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest("id must be a positive integer")
	}
	return id, nil
}

func withCelebrate(path, reason string) string {
	if reason == "" {
		return path
	}
	return path + "?" + url.Values{"celebrate": {reason}}.Encode()
}

// celebrateParam accepts only known event names.
func celebrateParam(r *http.Request) string {
	c := wish.EventType(r.URL.Query().Get("celebrate"))
	if c.Valid() {
		return string(c)
	}
	return ""
}
