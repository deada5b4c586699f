package voice

import (
	"context"
	"time"

	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
)

// rendezvousTimeout is a var rather than a const so tests can shrink it
// instead of waiting out the real 30 seconds.
var rendezvousTimeout = 30 * time.Second

// RendezvousResult is what the HTTP layer renders as the chat-completion
// envelope. Empty is true for the immediate Accumulating path, where the
// content is deliberately blank rather than absent.
type RendezvousResult struct {
	Content string
	Empty   bool
}

// Rendezvous implements the request/response handshake described for the
// voice session buffer: it bumps the request counter, appends the caller's
// text to the buffer, then behaves according to the session's current
// state. Accumulating returns immediately with an empty response.
// Triggered blocks on a waiter up to 30 seconds. ResponseReady consumes and
// deletes the session, delivering its cached response exactly once.
func (s *Store) Rendezvous(ctx context.Context, sessionID, text string) (RendezvousResult, error) {
	if _, err := s.IncrementRequests(sessionID); err != nil {
		return RendezvousResult{}, err
	}
	s.AddTranscription(sessionID, text)

	state, err := s.GetState(sessionID)
	if err != nil {
		return RendezvousResult{}, err
	}

	switch state {
	case StateAccumulating:
		return RendezvousResult{Empty: true}, nil

	case StateTriggered:
		waiter, cancel := s.RegisterWaiter(sessionID)

		// SetResponse may have drained the waiter table between GetState and
		// RegisterWaiter; re-check so such a waiter takes the cached path.
		if now, err := s.GetState(sessionID); err == nil && now == StateResponseReady {
			select {
			case text, ok := <-waiter:
				if ok {
					return RendezvousResult{Content: text}, nil
				}
			default:
			}
			cancel()
			if sess, err := s.Get(sessionID); err == nil {
				s.Delete(sessionID)
				return RendezvousResult{Content: sess.Response}, nil
			}
		}

		timer := time.NewTimer(rendezvousTimeout)
		defer timer.Stop()

		select {
		case text, ok := <-waiter:
			if !ok {
				return RendezvousResult{}, coreerr.Internal("voice session %q waiter dropped", sessionID)
			}
			return RendezvousResult{Content: text}, nil
		case <-timer.C:
			cancel()
			return RendezvousResult{}, coreerr.Timeout("voice session %q timed out waiting for response", sessionID)
		case <-ctx.Done():
			cancel()
			return RendezvousResult{}, coreerr.Timeout("voice session %q request canceled", sessionID)
		}

	case StateResponseReady:
		sess, err := s.Get(sessionID)
		if err != nil {
			return RendezvousResult{}, err
		}
		s.Delete(sessionID)
		return RendezvousResult{Content: sess.Response}, nil

	default:
		return RendezvousResult{}, coreerr.Internal("voice session %q in unexpected state %q", sessionID, state)
	}
}
