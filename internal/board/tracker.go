package board

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// VisitorIDPrefix starts every generated visitor ID.
const VisitorIDPrefix = "visitor_"

// NewVisitorID returns a time-ordered random visitor identifier.
func NewVisitorID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return VisitorIDPrefix + strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}

// Tracker assigns this client a persistent anonymous ID and reports visits.
type Tracker struct {
	backend Backend
	ids     IDStore
	log     zerolog.Logger
}

// NewTracker returns a Tracker using ids to persist the visitor ID.
func NewTracker(b Backend, ids IDStore, log zerolog.Logger) *Tracker {
	if ids == nil {
		ids = &MemoryIDStore{}
	}
	return &Tracker{backend: b, ids: ids, log: log}
}

// VisitorID loads the persisted ID, generating and saving one on first use.
// A failed save still returns the new ID.
func (t *Tracker) VisitorID() string {
	id, err := t.ids.Load()
	if err != nil {
		t.log.Warn().Err(err).Msg("load visitor id failed")
	}
	if id != "" {
		return id
	}

	id = NewVisitorID()
	if err := t.ids.Save(id); err != nil {
		t.log.Warn().Err(err).Msg("save visitor id failed")
	}
	return id
}

// Report records a visit. Failures are logged and never returned or retried.
func (t *Tracker) Report(ctx context.Context) string {
	id := t.VisitorID()
	if err := t.backend.TrackVisitor(ctx, id); err != nil {
		t.log.Warn().Err(err).Str("visitor_id", id).Msg("visit report failed")
	}
	return id
}

// ReportAsync records a visit in the background.
func (t *Tracker) ReportAsync(ctx context.Context) {
	go t.Report(context.WithoutCancel(ctx))
}
