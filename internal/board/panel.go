package board

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

// PanelOptions configures a Panel.
type PanelOptions struct {
	Password string // empty disables login
	Session  Session
	Logger   zerolog.Logger
}

// PanelState is a copy of the panel's current view.
type PanelState struct {
	Authenticated bool        `json:"authenticated"`
	Wishes        []wish.Wish `json:"wishes"`
	Visitors      int         `json:"visitors"`
	Selected      []int64     `json:"selected"`
}

// Panel is the password-gated moderation view.
type Panel struct {
	backend  Backend
	password string
	session  Session
	log      zerolog.Logger

	mu       sync.Mutex
	authed   bool
	wishes   []wish.Wish
	visitors int
	selected map[int64]bool
}

// NewPanel returns an unauthenticated Panel.
func NewPanel(b Backend, opts PanelOptions) *Panel {
	session := opts.Session
	if session == nil {
		session = &MemorySession{}
	}
	return &Panel{
		backend:  b,
		password: opts.Password,
		session:  session,
		log:      opts.Logger,
		wishes:   []wish.Wish{},
		selected: make(map[int64]bool),
	}
}

// Restore authenticates from a previously set session flag without asking
// for the password again, then loads the list. It is a no-op when the flag
// is not set.
func (p *Panel) Restore(ctx context.Context) error {
	if !p.session.Authenticated() {
		return nil
	}
	p.mu.Lock()
	p.authed = true
	p.mu.Unlock()
	p.forwardPassword()
	return p.Refresh(ctx)
}

// Login checks password. A mismatch leaves the panel unauthenticated and
// nothing is fetched. There is no lockout.
func (p *Panel) Login(ctx context.Context, password string) error {
	if p.password == "" {
		return errors.NewUnauthorized("admin login is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(p.password)) != 1 {
		p.log.Warn().Msg("admin login failed")
		return errors.NewUnauthorized("wrong password")
	}

	p.mu.Lock()
	p.authed = true
	p.mu.Unlock()

	if err := p.session.SetAuthenticated(true); err != nil {
		p.log.Warn().Err(err).Msg("persist admin session failed")
	}
	p.forwardPassword()
	p.log.Info().Msg("admin logged in")
	return p.Refresh(ctx)
}

// Logout clears the session flag and the loaded list.
func (p *Panel) Logout() error {
	p.mu.Lock()
	p.authed = false
	p.wishes = []wish.Wish{}
	p.visitors = 0
	p.selected = make(map[int64]bool)
	p.mu.Unlock()

	return p.session.SetAuthenticated(false)
}

// Authenticated reports whether the panel is unlocked.
func (p *Panel) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authed
}

// State returns a copy of the current view.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()

	wishes := make([]wish.Wish, len(p.wishes))
	copy(wishes, p.wishes)
	return PanelState{
		Authenticated: p.authed,
		Wishes:        wishes,
		Visitors:      p.visitors,
		Selected:      p.selectedLocked(),
	}
}

// Refresh reloads every wish and the visitor count. Selections of wishes
// that no longer exist are dropped. A failed visitor count keeps the old one.
func (p *Panel) Refresh(ctx context.Context) error {
	if !p.Authenticated() {
		return errors.NewUnauthorized("login required")
	}

	wishes, err := p.backend.ListWishes(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("admin wish list failed")
		return userError(err)
	}
	visitors, countErr := p.backend.VisitorCount(ctx)
	if countErr != nil {
		p.log.Warn().Err(countErr).Msg("visitor count failed")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.wishes = wishes
	if countErr == nil {
		p.visitors = visitors
	}
	present := make(map[int64]bool, len(wishes))
	for _, w := range wishes {
		present[w.ID] = true
	}
	for id := range p.selected {
		if !present[id] {
			delete(p.selected, id)
		}
	}
	return nil
}

// Toggle flips the selection of one listed wish.
func (p *Panel) Toggle(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authed {
		return errors.NewUnauthorized("login required")
	}
	if !p.listedLocked(id) {
		return errors.NewNotFound("wish", id)
	}
	if p.selected[id] {
		delete(p.selected, id)
	} else {
		p.selected[id] = true
	}
	return nil
}

// SelectAll selects every listed wish.
func (p *Panel) SelectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authed {
		return
	}
	for _, w := range p.wishes {
		p.selected[w.ID] = true
	}
}

// DeselectAll clears the selection.
func (p *Panel) DeselectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = make(map[int64]bool)
}

// Selected returns the selected IDs in ascending order.
func (p *Panel) Selected() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectedLocked()
}

// RequestDelete starts the confirmation step for one wish.
func (p *Panel) RequestDelete(id int64) (*Confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authed {
		return nil, errors.NewUnauthorized("login required")
	}
	if !p.listedLocked(id) {
		return nil, errors.NewNotFound("wish", id)
	}
	return &Confirmation{IDs: []int64{id}, panel: p}, nil
}

// RequestBulkDelete starts the confirmation step for the current selection.
func (p *Panel) RequestBulkDelete() (*Confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authed {
		return nil, errors.NewUnauthorized("login required")
	}
	ids := p.selectedLocked()
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("no wishes selected")
	}
	return &Confirmation{IDs: ids, Bulk: true, panel: p}, nil
}

func (p *Panel) listedLocked(id int64) bool {
	for _, w := range p.wishes {
		if w.ID == id {
			return true
		}
	}
	return false
}

func (p *Panel) selectedLocked() []int64 {
	ids := make([]int64, 0, len(p.selected))
	for id := range p.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Panel) forwardPassword() {
	if a, ok := p.backend.(adminCredentialed); ok && p.password != "" {
		a.SetAdminPassword(p.password)
	}
}

// DeleteReport summarizes a confirmed delete.
type DeleteReport struct {
	Requested int                `json:"requested"`
	Deleted   []int64            `json:"deleted"`
	Failed    []ops.FailedDelete `json:"failed"`
}

// Confirmation is a pending delete awaiting the moderator's yes.
type Confirmation struct {
	IDs  []int64
	Bulk bool

	panel *Panel
	mu    sync.Mutex
	done  bool
}

// Count is the number of wishes that will be removed.
func (c *Confirmation) Count() int {
	return len(c.IDs)
}

// Prompt is the question shown to the moderator.
func (c *Confirmation) Prompt() string {
	if c.Bulk {
		return fmt.Sprintf("Delete %d selected wishes?", len(c.IDs))
	}
	return "Delete this wish?"
}

// Confirm removes the wishes concurrently, then re-fetches the list. Any
// failed removal is reported as UNAVAILABLE after the re-fetch; the report
// says which IDs went through.
func (c *Confirmation) Confirm(ctx context.Context) (*DeleteReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return nil, errors.NewConflict("this delete was already confirmed or cancelled")
	}
	c.done = true

	p := c.panel
	if !p.Authenticated() {
		return nil, errors.NewUnauthorized("login required")
	}

	out, err := ops.BulkDelete(ctx, p.backend.DeleteWish, ops.BulkDeleteInput{IDs: c.IDs})
	if err != nil {
		return nil, err
	}
	report := &DeleteReport{Requested: out.Requested, Deleted: out.Deleted, Failed: out.Failed}

	p.mu.Lock()
	for _, id := range out.Deleted {
		delete(p.selected, id)
	}
	p.mu.Unlock()

	p.log.Info().Int("requested", report.Requested).Int("deleted", len(report.Deleted)).Msg("wishes deleted")

	refreshErr := p.Refresh(ctx)
	if len(report.Failed) > 0 {
		return report, errors.NewUnavailable(fmt.Errorf("%d of %d deletes failed", len(report.Failed), report.Requested))
	}
	if refreshErr != nil {
		return report, refreshErr
	}
	return report, nil
}

// Cancel abandons the delete.
func (c *Confirmation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
}
