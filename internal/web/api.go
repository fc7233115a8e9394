package web

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/remote"
	"github.com/hpungsan/santa/internal/wish"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// APIListWishes handles GET /api/wishes. An optional ?category= narrows the list.
func (h *Handlers) APIListWishes(w http.ResponseWriter, r *http.Request) {
	category, err := ops.NormalizeCategoryFilter(r.URL.Query().Get("category"))
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	wishes, err := h.store.ListWishes(r.Context())
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{"wishes": ops.FilterByCategory(wishes, category)})
}

// APICreateWish handles POST /api/wishes.
func (h *Handlers) APICreateWish(w http.ResponseWriter, r *http.Request) {
	var draft wish.Draft
	if err := decodeJSON(r, &draft); err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	out, err := ops.Create(r.Context(), h.store, ops.CreateInput{
		Draft:           draft,
		RequireCategory: !h.cfg.OptionalCategory,
	})
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	if out.EventErr != nil {
		h.log.Warn().Err(out.EventErr).Int64("wish_id", out.Wish.ID).Msg("record wish_created event failed")
	}
	h.log.Info().Int64("wish_id", out.Wish.ID).Str("country", out.Wish.Country).Msg("wish created")
	renderJSON(w, http.StatusCreated, out.Wish)
}

// APIDeleteWish handles DELETE /api/wishes?id={id}. It requires the admin
// password header or an authenticated admin session.
func (h *Handlers) APIDeleteWish(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		renderAPIError(w, h.log, errors.NewInvalidRequest("id must be an integer"))
		return
	}

	out, err := ops.Delete(r.Context(), h.store, id)
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	h.log.Info().Int64("wish_id", id).Msg("wish deleted")
	renderJSON(w, http.StatusOK, out)
}

// APIListEvents handles GET /api/events?limit=N.
func (h *Handlers) APIListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := ops.Events(r.Context(), h.store, parseIntParam(r, "limit", ops.DefaultFeedLimit))
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"events": events})
}

type recordEventRequest struct {
	Type   wish.EventType `json:"type"`
	WishID int64          `json:"wish_id"`
}

// APIRecordEvent handles POST /api/events. Only claims may be posted.
func (h *Handlers) APIRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := decodeJSON(r, &req); err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	e, err := ops.RecordEvent(r.Context(), h.store, ops.RecordEventInput{Type: req.Type, WishID: req.WishID})
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusCreated, e)
}

// APIActivity handles GET /api/activity.
func (h *Handlers) APIActivity(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Feed(r.Context(), h.store, ops.FeedInput{
		Limit: parseIntParam(r, "limit", h.cfg.FeedLimit),
	})
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// APIVisitorCount handles GET /api/visitors.
func (h *Handlers) APIVisitorCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountVisitors(r.Context())
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]int{"count": n})
}

type trackVisitorRequest struct {
	VisitorID string `json:"visitor_id"`
}

// APITrackVisitor handles POST /api/visitors. The caller's address is used
// for the country lookup.
func (h *Handlers) APITrackVisitor(w http.ResponseWriter, r *http.Request) {
	var req trackVisitorRequest
	if err := decodeJSON(r, &req); err != nil {
		renderAPIError(w, h.log, err)
		return
	}

	v, err := ops.TrackVisit(r.Context(), h.store, h.local.Resolver, ops.TrackVisitInput{
		VisitorID: req.VisitorID,
		IP:        r.RemoteAddr,
	})
	if err != nil {
		renderAPIError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"visitor": v})
}

// requireAdmin accepts the admin password header or an admin session cookie.
func (h *Handlers) requireAdmin(r *http.Request) error {
	if h.cfg.AdminPassword == "" {
		return errors.NewUnauthorized("admin access is disabled")
	}
	if pw := r.Header.Get(remote.AdminHeader); pw != "" {
		if subtle.ConstantTimeCompare([]byte(pw), []byte(h.cfg.AdminPassword)) == 1 {
			return nil
		}
		h.log.Warn().Str("remote_addr", r.RemoteAddr).Msg("admin password rejected")
		return errors.NewUnauthorized("wrong admin password")
	}
	if s := h.adminFromCookie(r); s != nil && s.panel.Authenticated() {
		return nil
	}
	return errors.NewUnauthorized("admin password required")
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.NewInvalidRequest("request body is required")
		}
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
