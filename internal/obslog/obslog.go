// Package obslog provides structured logging via zerolog, replacing the teacher's
// log.Println call sites with event loggers carrying entity id/attribute/phase/state/
// source-location fields (§7 "user-visible failures").
package obslog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Base is the process-wide logger, writing structured JSON to stderr with a second-
// resolution timestamp (sub-second precision buys nothing at simulation-step grain).
var Base = zerolog.New(os.Stderr).With().Timestamp().Logger()

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// EntityContext names the scheduling coordinates a log line should carry whenever it
// concerns one entity's attribute resolution (§7).
type EntityContext struct {
	EntityKind string
	EntityID   string
	Attribute  string
	Event      string
	State      string
	Source     string // declaring handler's file:line, if known
}

// With attaches an EntityContext's fields to logger, for one scoped log call.
func With(logger zerolog.Logger, ctx EntityContext) zerolog.Logger {
	ev := logger.With()
	if ctx.EntityKind != "" {
		ev = ev.Str("entity_kind", ctx.EntityKind)
	}
	if ctx.EntityID != "" {
		ev = ev.Str("entity_id", ctx.EntityID)
	}
	if ctx.Attribute != "" {
		ev = ev.Str("attribute", ctx.Attribute)
	}
	if ctx.Event != "" {
		ev = ev.Str("event", ctx.Event)
	}
	if ctx.State != "" {
		ev = ev.Str("state", ctx.State)
	}
	if ctx.Source != "" {
		ev = ev.Str("source", ctx.Source)
	}
	return ev.Logger()
}

// ResolutionError logs a handler/resolution failure at error level with full entity
// context, the single logging chokepoint the scheduler calls on any resolve() error.
func ResolutionError(ctx EntityContext, err error) {
	With(Base, ctx).Error().Err(err).Msg("attribute resolution failed")
}

// CycleDetected logs a detected dependency cycle (§4.5), distinct from a generic
// resolution error since it carries its own path rendering.
func CycleDetected(ctx EntityContext, path []string) {
	With(Base, ctx).Error().Strs("cycle_path", path).Msg("dependency cycle detected")
}
