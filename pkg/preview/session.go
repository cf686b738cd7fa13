// Package preview turns a response that is still streaming in into a live
// markup preview and serves it to browsers over a websocket.
package preview

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/directive"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/events"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

// Update is a new preview fragment.
type Update struct {
	Session   string `json:"session"`
	Fragment  string `json:"fragment"`
	BytesSeen int    `json:"bytes_seen"`
}

// Session accumulates one streamed response.
type Session struct {
	ID string

	bus *events.EventBus

	mu       sync.Mutex
	text     strings.Builder
	latest   string
	finished bool
}

// NewSession starts a session publishing to bus, which may be nil.
func NewSession(bus *events.EventBus) *Session {
	return &Session{ID: uuid.NewString(), bus: bus}
}

// Append adds a chunk of the response. It returns an Update when the
// extractable fragment changed.
func (s *Session) Append(chunk string) (Update, bool) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return Update{}, false
	}
	s.text.WriteString(chunk)
	frag, ok := directive.ExtractPartial(s.text.String())
	if !ok || frag == s.latest {
		s.mu.Unlock()
		return Update{}, false
	}
	s.latest = frag
	u := Update{Session: s.ID, Fragment: frag, BytesSeen: s.text.Len()}
	s.mu.Unlock()

	s.publish(events.EventTypePreviewUpdated, events.PreviewUpdatedEvent(u.Fragment, u.BytesSeen))
	return u, true
}

// Finish parses the complete response. Further chunks are ignored.
func (s *Session) Finish() (directive.Response, bool) {
	s.mu.Lock()
	s.finished = true
	raw := s.text.String()
	s.mu.Unlock()

	resp, ok := directive.ParseResponse(raw)
	if !ok {
		s.publish(events.EventTypeError, events.ErrorEvent("finish", utils.ErrGrammarViolation))
		return directive.Response{}, false
	}

	op := ""
	if len(resp.Directives) > 0 {
		op = resp.Directives[0].Kind.String()
	}
	s.publish(events.EventTypeDirectiveParsed,
		events.DirectiveParsedEvent(op, resp.Message, len(resp.Directives), resp.FellBack))
	return resp, true
}

// Latest returns the most recent preview fragment.
func (s *Session) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Text returns everything received so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Stream feeds r into the session until EOF or ctx is done, calling
// onUpdate for every changed fragment. It does not call Finish.
func (s *Session) Stream(ctx context.Context, r io.Reader, onUpdate func(Update)) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if u, ok := s.Append(string(buf[:n])); ok && onUpdate != nil {
				onUpdate(u)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) publish(eventType string, data any) {
	if s.bus != nil {
		s.bus.Publish(eventType, s.ID, data)
	}
}
