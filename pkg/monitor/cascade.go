package monitor

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/solarsight/solarsight/pkg/log"
)

// candidate describes one endpoint variant able to serve a capability.
// Candidate lists are ordered most specific/modern first: the newer
// API-style endpoints are cheaper and more reliable than the legacy
// web-panel endpoints that need session cookies.
type candidate struct {
	name        string // endpoint identifier, also used as a reading source
	method      string
	path        string
	query       url.Values
	form        url.Values
	needCookies bool
}

// resolve tries candidates in order and returns the first payload the
// classifier accepts, along with the winning candidate's name.
// A rejected classification, a network error and a per-attempt timeout
// all fall through to the next candidate. Exhausting the list is not an
// error; callers treat it as "no data available via this path".
func (g *Growatt) resolve(ctx context.Context, sess *session, cands []candidate) (payload, string, bool) {
	for _, c := range cands {
		if p, ok := g.attempt(ctx, sess, c); ok {
			return p, c.name, true
		}
		if ctx.Err() != nil {
			// run deadline hit, no point trying the rest
			return nil, "", false
		}
	}
	return nil, "", false
}

// attempt performs a single candidate request under its own timeout
// (the vendor is known to hang on stale sessions) and classifies the
// response.
func (g *Growatt) attempt(ctx context.Context, sess *session, c candidate) (payload, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
	defer cancel()

	body, _, err := g.fetch(attemptCtx, sess, c)
	if err != nil {
		log.Ctx(ctx).DebugContext(ctx, "endpoint attempt failed",
			slog.String("endpoint", c.name), slog.Any("error", err))
		return nil, false
	}
	p, reason := classify(body)
	if reason != "" {
		log.Ctx(ctx).DebugContext(ctx, "endpoint response rejected",
			slog.String("endpoint", c.name), slog.String("reason", string(reason)))
		return nil, false
	}
	return p, true
}
