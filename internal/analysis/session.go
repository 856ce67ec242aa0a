package analysis

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for a submission that was replaced by a newer
// one before it finished. Its result must not be shown.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

// Session tracks the analyses submitted by one interactive user. Only the
// most recent submission may deliver a result: submitting a new URL cancels
// the one in flight, and anything that completes late is discarded.
type Session struct {
	analyzer *Analyzer

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	latest *Assessment
}

// NewSession creates a Session backed by a.
func NewSession(a *Analyzer) *Session {
	return &Session{analyzer: a}
}

// Submit analyses raw as the session's current request. It returns
// ErrSuperseded if another Submit started before this one finished.
func (s *Session) Submit(ctx context.Context, raw string) (*Assessment, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ticket := s.seq
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res, err := s.analyzer.Analyze(rctx, raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.seq {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		return nil, err
	}
	s.latest = res
	return res, nil
}

// Latest returns the most recent result delivered by Submit, or nil.
func (s *Session) Latest() *Assessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Cancel abandons the in-flight submission, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}
