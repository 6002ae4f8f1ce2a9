// Package chat keeps conversation sessions and turns pipeline failures into text that
// can be shown to a user.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gamma-omg/profile-mcp/pipeline"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// GenericError is the reply shown when a turn fails for any internal reason.
const GenericError = "抱歉，服务暂时不可用，请稍后再试。"

var ErrEmptyMessage = errors.New("message is empty")

type Turner interface {
	NewState() *pipeline.State
	Turn(ctx context.Context, st *pipeline.State, text string) (string, error)
}

type Reply struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type session struct {
	mu    sync.Mutex
	state *pipeline.State
	ended bool // guarded by Service.mu
}

type Service struct {
	log      *slog.Logger
	pipe     Turner
	mu       sync.Mutex
	sessions *cache.Cache
}

// NewService keeps sessions for ttl after their last turn; ttl <= 0 keeps them for the
// life of the process.
func NewService(log *slog.Logger, pipe Turner, ttl time.Duration) *Service {
	exp, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		exp, cleanup = ttl, ttl
	}

	return &Service{
		log:      log,
		pipe:     pipe,
		sessions: cache.New(exp, cleanup),
	}
}

// Chat runs one turn for sessionID, creating the session when it is unknown or empty.
// The returned reply always carries user-facing text; err is non-nil when that text is
// GenericError.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{SessionID: sessionID, Reply: GenericError}, ErrEmptyMessage
	}

	id, sess := s.session(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	text, err := s.pipe.Turn(ctx, sess.state, message)
	s.touch(id, sess)
	if err != nil {
		s.log.Error("chat turn failed", "session", id, "error", err)
		return Reply{SessionID: id, Reply: GenericError}, err
	}

	return Reply{SessionID: id, Reply: text}, nil
}

// End forgets a session. Unknown ids are ignored. A turn still running on the session
// completes but does not bring it back.
func (s *Service) End(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.sessions.Get(sessionID); ok {
		v.(*session).ended = true
	}
	s.sessions.Delete(sessionID)
}

// touch restarts the expiry of a session after a turn unless it was ended meanwhile.
func (s *Service) touch(id string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ended {
		return
	}
	s.sessions.Set(id, sess, cache.DefaultExpiration)
}

func (s *Service) Sessions() int {
	return s.sessions.ItemCount()
}

func (s *Service) session(id string) (string, *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	} else if v, ok := s.sessions.Get(id); ok {
		return id, v.(*session)
	}

	sess := &session{state: s.pipe.NewState()}
	s.sessions.Set(id, sess, cache.DefaultExpiration)
	s.log.Info("session started", "session", id)

	return id, sess
}
