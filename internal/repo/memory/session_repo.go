package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

type Session struct {
	ID         string           `msgpack:"id"`
	CreatedAt  time.Time        `msgpack:"created_at"`
	LastSeen   time.Time        `msgpack:"last_seen"`
	EndedAt    time.Time        `msgpack:"ended_at"`
	Sport      string           `msgpack:"sport"`
	ThrowMs    int64            `msgpack:"throw_ms"`
	RestMs     int64            `msgpack:"rest_ms"`
	Feedback   []types.Feedback `msgpack:"feedback"`
	Frames     int64            `msgpack:"frames"`
	Suppressed int64            `msgpack:"suppressed"`
	AudioClips int64            `msgpack:"audio_clips"`
}

func (s *Session) clone() *Session {
	c := *s
	c.Feedback = slices.Clone(s.Feedback)
	return &c
}

// SessionRepo holds live sessions. Values handed out are copies.
type SessionRepo struct {
	mu sync.Mutex
	m  map[string]*Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{m: map[string]*Session{}}
}

func (r *SessionRepo) Save(s *Session) {
	r.mu.Lock()
	r.m[s.ID] = s.clone()
	r.mu.Unlock()
}

func (r *SessionRepo) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Delete removes id and returns its last state.
func (r *SessionRepo) Delete(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if ok {
		delete(r.m, id)
	}
	return s, ok
}

func (r *SessionRepo) update(id string, now time.Time, f func(*Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return false
	}
	f(s)
	if now.After(s.LastSeen) {
		s.LastSeen = now
	}
	return true
}

func (r *SessionRepo) Touch(id string, now time.Time) bool {
	return r.update(id, now, func(*Session) {})
}

func (r *SessionRepo) IncFrame(id string, now time.Time) {
	r.update(id, now, func(s *Session) { s.Frames++ })
}

func (r *SessionRepo) IncSuppressed(id string, now time.Time) {
	r.update(id, now, func(s *Session) { s.Suppressed++ })
}

func (r *SessionRepo) IncAudio(id string, now time.Time) {
	r.update(id, now, func(s *Session) { s.AudioClips++ })
}

func (r *SessionRepo) AppendFeedback(id string, fb types.Feedback, now time.Time) {
	r.update(id, now, func(s *Session) { s.Feedback = append(s.Feedback, fb) })
}

// IdleSince lists sessions not seen since t.
func (r *SessionRepo) IdleSince(t time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, s := range r.m {
		if s.LastSeen.Before(t) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (r *SessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
