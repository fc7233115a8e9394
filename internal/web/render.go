package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/santa/internal/board"
	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

// CardTextLimit is how many characters of a wish a card shows.
const CardTextLimit = 120

// PageData contains common fields used across all page templates.
type PageData struct {
	Title     string
	Version   string
	Nav       string // active nav item: "home", "write", "wishes", "admin"
	Celebrate string // non-empty fires the confetti effect
	Popup     PopupSettings
}

// PopupSettings are the notification timings handed to the page script.
type PopupSettings struct {
	PollMS    int
	VisibleMS int
	FadeMS    int
}

// HomePageData is the template data for the landing page.
type HomePageData struct {
	PageData
	Feed board.FeedSnapshot
}

// WritePageData is the template data for the wish form.
type WritePageData struct {
	PageData
	Draft           wish.Draft
	Errors          map[string]string
	Message         string
	Categories      []wish.Category
	RequireCategory bool
}

// ConfirmPageData is the template data for the subscription gate.
type ConfirmPageData struct {
	PageData
	Token      string
	Draft      wish.Draft
	ChannelURL string
	Message    string
}

// WishesPageData is the template data for the browse page.
type WishesPageData struct {
	PageData
	View       board.View
	Categories []wish.Category
	Pages      []int
	Message    string
}

// DetailPageData is the template data for a wish detail view.
type DetailPageData struct {
	PageData
	Token    string
	Summary  board.Summary
	WishHTML template.HTML
	Handle   string
	Revealed bool
}

// AdminPageData is the template data for the moderation panel.
type AdminPageData struct {
	PageData
	State    board.PanelState
	Selected map[int64]bool
	Confirm  *board.Confirmation
	Report   *board.DeleteReport
	Message  string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	popup     PopupSettings
	log       zerolog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, popup PopupSettings, log zerolog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"truncate":   func(s string) string { return wish.Truncate(s, CardTextLimit) },
		"formatDate": formatDate,
		"label":      categoryLabel,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"home":    "home.html",
		"write":   "write.html",
		"confirm": "confirm.html",
		"wishes":  "wishes.html",
		"detail":  "detail.html",
		"admin":   "admin.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		popup:     popup,
		log:       log,
	}
}

// page fills the common page fields.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav, Popup: r.popup}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.Error().Err(err).Str("template", name).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	se := publicError(err)
	if se.Code == errors.ErrInternal {
		r.log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
	}

	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(se.Status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(se.Message))
		return
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, se.Status, map[string]any{"error": se})
		return
	}

	r.renderPageStatus(w, req, se.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", se.Status), ""),
		StatusCode: se.Status,
		Message:    se.Message,
	})
}

// publicError converts err to the coded error shown to clients. Internal
// causes are replaced with a generic message.
func publicError(err error) *errors.SantaError {
	se := errors.As(err)
	if se.Code == errors.ErrInternal {
		return &errors.SantaError{Code: errors.ErrInternal, Status: http.StatusInternalServerError, Message: "internal error"}
	}
	if se.Status == 0 {
		se.Status = http.StatusInternalServerError
	}
	return se
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderAPIError writes the JSON error envelope.
func renderAPIError(w http.ResponseWriter, log zerolog.Logger, err error) {
	se := publicError(err)
	if se.Code == errors.ErrInternal {
		log.Error().Err(err).Msg("api request failed")
	}
	renderJSON(w, se.Status, map[string]any{"error": se})
}

// renderMarkdown converts markdown text to HTML using goldmark. Raw HTML in
// the source is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatDate formats an epoch-millis timestamp as "2006-01-02 15:04" UTC.
func formatDate(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02 15:04")
}

// categoryLabel is the display name of a category.
func categoryLabel(c wish.Category) string {
	switch c {
	case wish.CategoryMaterial:
		return "Material gift"
	case wish.CategoryHelp:
		return "Help"
	case wish.CategoryCommunication:
		return "Communication"
	case wish.CategoryExperience:
		return "Experience"
	case "":
		return "Uncategorized"
	default:
		return string(c)
	}
}

// pageNumbers lists 1..p.TotalPages for the pager.
func pageNumbers(p ops.Pagination) []int {
	pages := make([]int, p.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
