package web

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/logging"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/remote"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

const testPassword = "hohoho"

type testEnv struct {
	h      *Handlers
	router *chi.Mux
	store  store.Store
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AdminPassword = testPassword

	s, err := store.Open(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h, err := NewHandlers(Options{Store: s, Config: cfg, Logger: logging.Nop(), Version: "test"})
	require.NoError(t, err)
	return &testEnv{h: h, router: NewRouter(h), store: s}
}

// seedWish stores a wish and returns it.
func seedWish(t *testing.T, env *testEnv, text, country string, category wish.Category) wish.Wish {
	t.Helper()
	w := &wish.Wish{Wish: text, Country: country, Telegram: "@" + strings.ToLower(country), Category: category}
	require.NoError(t, env.store.InsertWish(context.Background(), w), "seed wish %q", text)
	return *w
}

func (env *testEnv) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var tokenRe = regexp.MustCompile(`name="token" value="([^"]+)"`)

func formToken(t *testing.T, body string) string {
	t.Helper()
	m := tokenRe.FindStringSubmatch(body)
	require.NotNil(t, m, "no token in body:\n%s", body)
	return m[1]
}

// --- API ---

func TestAPI_CreateAndList(t *testing.T) {
	env := setupTest(t)

	rec := env.doJSON("POST", "/api/wishes", `{"wish":"A bike","country":"Norway","telegram":"@nora","category":"material"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created wish.Wish
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	require.Equal(t, "@nora", created.Telegram)

	rec = env.doJSON("GET", "/api/wishes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Wishes []wish.Wish `json:"wishes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Wishes, 1)
	require.Equal(t, created, list.Wishes[0])

	// The create also recorded a wish_created event.
	rec = env.doJSON("GET", "/api/events?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"wish_created"`)
}

// eventlessStore fails every event write.
type eventlessStore struct {
	store.Store
}

func (eventlessStore) InsertEvent(context.Context, *wish.Event) error {
	return stderrors.New("events table is locked")
}

func TestAPI_CreateLogsEventFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := store.Open(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var logs bytes.Buffer
	h, err := NewHandlers(Options{Store: eventlessStore{s}, Config: cfg, Logger: logging.NewWithWriter("production", &logs), Version: "test"})
	require.NoError(t, err)
	env := &testEnv{h: h, router: NewRouter(h), store: s}

	rec := env.doJSON("POST", "/api/wishes", `{"wish":"A bike","country":"Norway","telegram":"@nora","category":"material"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, logs.String(), "record wish_created event failed")

	wishes, err := s.ListWishes(context.Background())
	require.NoError(t, err)
	require.Len(t, wishes, 1)
}

func TestAPI_CreateValidation(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"wish":"A bike"}`},
		{"handle without @", `{"wish":"A bike","country":"Norway","telegram":"nora","category":"material"}`},
		{"unknown category", `{"wish":"A bike","country":"Norway","telegram":"@nora","category":"cars"}`},
		{"bad json", `{`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON("POST", "/api/wishes", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Contains(t, rec.Body.String(), `"INVALID_REQUEST"`)
		})
	}

	wishes, err := env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Empty(t, wishes)
}

func TestAPI_ListCategoryFilter(t *testing.T) {
	env := setupTest(t)
	seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)
	seedWish(t, env, "Call me", "Peru", wish.CategoryCommunication)

	rec := env.doJSON("GET", "/api/wishes?category=communication", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Call me")
	require.NotContains(t, rec.Body.String(), "Bike")

	rec = env.doJSON("GET", "/api/wishes?category=cars", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_DeleteRequiresAdmin(t *testing.T) {
	env := setupTest(t)
	w := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)
	path := "/api/wishes?id=" + strconv.FormatInt(w.ID, 10)

	rec := env.doJSON("DELETE", path, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON("DELETE", path, "", map[string]string{remote.AdminHeader: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON("DELETE", path, "", map[string]string{remote.AdminHeader: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"success":true`)

	rec = env.doJSON("DELETE", path, "", map[string]string{remote.AdminHeader: testPassword})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON("DELETE", "/api/wishes?id=abc", "", map[string]string{remote.AdminHeader: testPassword})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_DeleteWithAdminSession(t *testing.T) {
	env := setupTest(t)
	w := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	rec := env.do("POST", "/admin/login", url.Values{"password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	session := cookieNamed(rec, adminCookie)
	require.NotNil(t, session)

	req := httptest.NewRequest("DELETE", "/api/wishes?id="+strconv.FormatInt(w.ID, 10), nil)
	req.AddCookie(session)
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
}

func TestAPI_Events(t *testing.T) {
	env := setupTest(t)
	w := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	rec := env.doJSON("POST", "/api/events", `{"type":"wish_claimed","wish_id":`+strconv.FormatInt(w.ID, 10)+`}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var e wish.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, wish.EventWishClaimed, e.Type)
	require.Equal(t, "Norway", e.Country)

	rec = env.doJSON("POST", "/api/events", `{"type":"wish_created","wish_id":1}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON("POST", "/api/events", `{"type":"wish_claimed","wish_id":99999}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Visitors(t *testing.T) {
	env := setupTest(t)

	rec := env.doJSON("POST", "/api/visitors", `{"visitor_id":"visitor_abc"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"visitor_abc"`)

	rec = env.doJSON("POST", "/api/visitors", `{"visitor_id":""}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON("GET", "/api/visitors", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestAPI_Activity(t *testing.T) {
	env := setupTest(t)
	rec := env.doJSON("POST", "/api/wishes", `{"wish":"A bike","country":"Norway","telegram":"@nora","category":"material"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.doJSON("GET", "/api/activity", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Activities []struct {
			Message string `json:"message"`
		} `json:"activities"`
		Counts struct {
			Day   int `json:"day"`
			Total int `json:"total"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Activities, 1)
	require.Equal(t, "A wish was made from Norway", out.Activities[0].Message)
	require.Equal(t, 1, out.Counts.Day)
	require.Equal(t, 1, out.Counts.Total)
}

func TestAPI_CORSPreflight(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest("OPTIONS", "/api/wishes", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestAPI_UnknownEndpoint(t *testing.T) {
	env := setupTest(t)
	rec := env.doJSON("GET", "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"NOT_FOUND"`)
}

// --- Pages ---

func TestHome(t *testing.T) {
	env := setupTest(t)
	seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	rec := env.do("GET", "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Write a wish")
	require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	c := cookieNamed(rec, visitorCookie)
	require.NotNil(t, c)
	require.True(t, strings.HasPrefix(c.Value, "visitor_"), c.Value)
}

func TestHome_HtmxReturnsContentOnly(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
}

func TestHome_FeedRefreshesWithoutPoller(t *testing.T) {
	env := setupTest(t)
	env.h.cfg.FeedPollMS = 0

	rec := env.do("GET", "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Norway")

	_, err := ops.Create(context.Background(), env.store, ops.CreateInput{
		Draft: wish.Draft{Wish: "A bike", Country: "Norway", Telegram: "@nora", Category: wish.CategoryMaterial},
	})
	require.NoError(t, err)

	rec = env.do("GET", "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "A wish was made from Norway")

	snap := env.h.feed.Snapshot()
	require.Len(t, snap.Activities, 1)
	require.Equal(t, 1, snap.Counts.Day)
	require.Equal(t, 1, snap.Counts.Week)
}

func TestHome_FeedKeptWithinPollInterval(t *testing.T) {
	env := setupTest(t)
	env.h.cfg.FeedPollMS = int(time.Hour / time.Millisecond)

	env.do("GET", "/", nil)
	seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	env.do("GET", "/", nil)
	require.Equal(t, 0, env.h.feed.Snapshot().Counts.Total)
}

func TestWriteFlow_ConfirmPersists(t *testing.T) {
	env := setupTest(t)

	form := url.Values{"wish": {"A bike"}, "country": {"Norway"}, "telegram": {"@nora"}, "category": {"material"}}
	rec := env.do("POST", "/write-wish", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "Almost there")
	require.Contains(t, rec.Body.String(), "https://t.me/")

	// Nothing is stored until the gate is confirmed.
	wishes, err := env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Empty(t, wishes)

	token := formToken(t, rec.Body.String())
	rec = env.do("POST", "/write-wish/confirm", url.Values{"token": {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/wishes?celebrate=wish_created", rec.Header().Get("Location"))

	wishes, err = env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Len(t, wishes, 1)
	require.Equal(t, "A bike", wishes[0].Wish)
	require.Equal(t, "@nora", wishes[0].Telegram)

	// The gate is single use.
	rec = env.do("POST", "/write-wish/confirm", url.Values{"token": {token}})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteFlow_CancelNeverPersists(t *testing.T) {
	env := setupTest(t)

	form := url.Values{"wish": {"A bike"}, "country": {"Norway"}, "telegram": {"@nora"}, "category": {"material"}}
	rec := env.do("POST", "/write-wish", form)
	token := formToken(t, rec.Body.String())

	rec = env.do("POST", "/write-wish/cancel", url.Values{"token": {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.do("POST", "/write-wish/confirm", url.Values{"token": {token}})
	require.Equal(t, http.StatusNotFound, rec.Code)

	wishes, err := env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Empty(t, wishes)
}

func TestWriteFlow_InvalidShowsFieldErrors(t *testing.T) {
	env := setupTest(t)

	form := url.Values{"wish": {"A bike"}, "country": {""}, "telegram": {"nora"}}
	rec := env.do("POST", "/write-wish", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "country is required")
	require.Contains(t, body, "telegram must start with @")
	require.Contains(t, body, "category is required")
	require.Contains(t, body, "A bike", "form keeps the entered text")
}

func TestWishesPage_FilterAndPaginate(t *testing.T) {
	env := setupTest(t)
	for i := 0; i < 10; i++ {
		seedWish(t, env, "Material wish "+strconv.Itoa(i), "Chile", wish.CategoryMaterial)
	}
	seedWish(t, env, "Help me move", "Peru", wish.CategoryHelp)

	rec := env.do("GET", "/wishes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 9, strings.Count(rec.Body.String(), `class="card"`))

	rec = env.do("GET", "/wishes?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, strings.Count(rec.Body.String(), `class="card"`))

	rec = env.do("GET", "/wishes?category=help", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, strings.Count(rec.Body.String(), `class="card"`))
	require.Contains(t, rec.Body.String(), "Help me move")

	rec = env.do("GET", "/wishes?category=cars", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWishesPage_Celebrate(t *testing.T) {
	env := setupTest(t)

	rec := env.do("GET", "/wishes?celebrate=wish_created", nil)
	require.Contains(t, rec.Body.String(), `data-celebrate="wish_created"`)

	rec = env.do("GET", "/wishes?celebrate=%3Cscript%3E", nil)
	require.Contains(t, rec.Body.String(), `data-celebrate=""`)
}

func TestDetail_RevealRecordsOneClaim(t *testing.T) {
	env := setupTest(t)
	w := seedWish(t, env, "A **bike**", "Norway", wish.CategoryMaterial)
	path := "/wishes/" + strconv.FormatInt(w.ID, 10)

	rec := env.do("GET", path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<strong>bike</strong>")
	require.NotContains(t, body, w.Telegram, "handle is hidden before reveal")
	token := formToken(t, body)

	rec = env.do("POST", path+"/reveal", url.Values{"token": {token}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), w.Telegram)
	require.Contains(t, rec.Body.String(), `data-celebrate="wish_claimed"`)

	rec = env.do("POST", path+"/reveal", url.Values{"token": {token}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), w.Telegram)

	events, err := env.store.RecentEvents(context.Background(), 10)
	require.NoError(t, err)
	claims := 0
	for _, e := range events {
		if e.Type == wish.EventWishClaimed {
			claims++
		}
	}
	require.Equal(t, 1, claims)

	// A new opening claims again.
	rec = env.do("GET", path, nil)
	token2 := formToken(t, rec.Body.String())
	require.NotEqual(t, token, token2)
	rec = env.do("POST", path+"/reveal", url.Values{"token": {token2}})
	require.Equal(t, http.StatusOK, rec.Code)

	events, err = env.store.RecentEvents(context.Background(), 10)
	require.NoError(t, err)
	claims = 0
	for _, e := range events {
		if e.Type == wish.EventWishClaimed {
			claims++
		}
	}
	require.Equal(t, 2, claims)
}

func TestDetail_CloseEndsOpening(t *testing.T) {
	env := setupTest(t)
	w := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)
	path := "/wishes/" + strconv.FormatInt(w.ID, 10)

	rec := env.do("GET", path, nil)
	token := formToken(t, rec.Body.String())

	rec = env.do("POST", path+"/close", url.Values{"token": {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.do("POST", path+"/reveal", url.Values{"token": {token}})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetail_NotFound(t *testing.T) {
	env := setupTest(t)

	rec := env.do("GET", "/wishes/12345", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do("GET", "/wishes/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_WrongPasswordStaysLocked(t *testing.T) {
	env := setupTest(t)
	seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	rec := env.do("POST", "/admin/login", url.Values{"password": {"nope"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "wrong password")
	require.NotContains(t, rec.Body.String(), "@norway")

	session := cookieNamed(rec, adminCookie)
	require.NotNil(t, session)
	rec = env.do("GET", "/admin", nil, session)
	require.Contains(t, rec.Body.String(), `action="/admin/login"`)
}

func TestAdmin_BulkDeleteFlow(t *testing.T) {
	env := setupTest(t)
	a := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)
	b := seedWish(t, env, "Call", "Peru", wish.CategoryCommunication)
	c := seedWish(t, env, "Trip", "Chile", wish.CategoryExperience)

	rec := env.do("POST", "/admin/login", url.Values{"password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	session := cookieNamed(rec, adminCookie)
	require.NotNil(t, session)

	rec = env.do("GET", "/admin", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "@norway")
	require.Contains(t, body, "<strong>3</strong> wishes")

	for _, id := range []int64{a.ID, c.ID} {
		rec = env.do("POST", "/admin/toggle/"+strconv.FormatInt(id, 10), url.Values{}, session)
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	rec = env.do("POST", "/admin/bulk-delete", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = env.do("GET", "/admin", nil, session)
	require.Contains(t, rec.Body.String(), "Delete 2 selected wishes?")

	// Nothing is removed before the confirmation.
	wishes, err := env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Len(t, wishes, 3)

	rec = env.do("POST", "/admin/confirm", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	wishes, err = env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Len(t, wishes, 1)
	require.Equal(t, b.ID, wishes[0].ID)

	rec = env.do("GET", "/admin", nil, session)
	require.Contains(t, rec.Body.String(), "Deleted 2 of 2.")
}

func TestAdmin_SingleDeleteCancel(t *testing.T) {
	env := setupTest(t)
	a := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	rec := env.do("POST", "/admin/login", url.Values{"password": {testPassword}})
	session := cookieNamed(rec, adminCookie)

	rec = env.do("POST", "/admin/delete/"+strconv.FormatInt(a.ID, 10), url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = env.do("GET", "/admin", nil, session)
	require.Contains(t, rec.Body.String(), "Delete this wish?")

	rec = env.do("POST", "/admin/cancel", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.do("POST", "/admin/confirm", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = env.do("GET", "/admin", nil, session)
	require.Contains(t, rec.Body.String(), "nothing to confirm")

	wishes, err := env.store.ListWishes(context.Background())
	require.NoError(t, err)
	require.Len(t, wishes, 1)
}

func TestAdmin_LogoutAndUnauthedActions(t *testing.T) {
	env := setupTest(t)
	a := seedWish(t, env, "Bike", "Norway", wish.CategoryMaterial)

	rec := env.do("POST", "/admin/delete/"+strconv.FormatInt(a.ID, 10), url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = env.do("POST", "/admin/login", url.Values{"password": {testPassword}})
	session := cookieNamed(rec, adminCookie)

	rec = env.do("POST", "/admin/logout", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.do("GET", "/admin", nil, session)
	require.Contains(t, rec.Body.String(), `action="/admin/login"`)
	require.NotContains(t, rec.Body.String(), "@norway")
}

func TestNotFoundPage(t *testing.T) {
	env := setupTest(t)

	rec := env.do("GET", "/no-such-page", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "/no-such-page")
}

func TestStaticAssets(t *testing.T) {
	env := setupTest(t)

	for _, path := range []string{"/static/style.css", "/static/app.js"} {
		rec := env.do("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHealthz(t *testing.T) {
	env := setupTest(t)
	rec := env.do("GET", "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
