// Package chat owns the session state machine: the flattened message
// collection across all sessions, the derived session list, title
// minting with collision suffixes, and the reconciliation step that
// turns a submitted utterance plus its reply into two persisted
// messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/model/persona"
)

var (
	ErrPersonaRequired = errors.New("persona must be chosen before submitting")
	ErrPersonaUnknown  = errors.New("persona not found")
	ErrPersonaChosen   = errors.New("persona already fixed for this chat")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message text is empty")
)

// Completer is the single-utterance completion client.
type Completer interface {
	Complete(ctx context.Context, userText, personaName string) (chat.Reply, error)
}

// HistoryStore is the persistence gateway. Load never fails; Save is
// best-effort from the state machine's point of view.
type HistoryStore interface {
	Load() []chat.Message
	Save(messages []chat.Message) error
}

// Service encapsulates conversation state management. All transitions
// run under one mutex; the completion call is the only operation that
// happens outside it, guarded by an epoch check so a reply that resolves
// after the user navigated away is discarded instead of reconciled.
type Service struct {
	mu       sync.Mutex
	logger   *zap.Logger
	history  HistoryStore
	complete Completer
	personas persona.Store
	notify   Notifier

	messages []chat.Message
	sessions []chat.Session
	index    map[string]int

	phase          Phase
	currentTitle   string
	currentPersona string
	epoch          uint64
}

// NewService loads the persisted collection and rebuilds the session
// index in order of first appearance. Legacy records without IDs get
// them backfilled in memory.
func NewService(history HistoryStore, complete Completer, personas persona.Store, logger *zap.Logger) *Service {
	s := &Service{
		logger:   logger,
		history:  history,
		complete: complete,
		personas: personas,
		index:    make(map[string]int),
		phase:    PhasePersonaPending,
	}

	s.messages = history.Load()
	for i := range s.messages {
		msg := &s.messages[i]
		idx, known := s.index[msg.Title]
		if !known {
			idx = len(s.sessions)
			s.index[msg.Title] = idx
			s.sessions = append(s.sessions, chat.Session{
				ID:        uuid.NewString(),
				Title:     msg.Title,
				Persona:   msg.Persona,
				CreatedAt: msg.CreatedAt,
			})
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.SessionID == "" {
			msg.SessionID = s.sessions[idx].ID
		}
	}
	return s
}

// SetNotifier registers the change-event sink. Not safe to call after
// the service starts handling requests.
func (s *Service) SetNotifier(fn Notifier) {
	s.notify = fn
}

// NewChat discards any in-progress persona selection and pending reply
// and returns to the fresh-chat state. Always available.
func (s *Service) NewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhasePersonaPending
	s.currentTitle = ""
	s.currentPersona = ""
	s.bump(Event{Type: EventNewChat})
}

// Select focuses an existing session. The session's persona is read back
// from history; personas are fixed at creation and never change. Unknown
// titles are rejected without mutating anything.
func (s *Service) Select(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[title]
	if !ok {
		return ErrSessionNotFound
	}

	s.phase = PhaseActive
	s.currentTitle = title
	s.currentPersona = s.sessions[idx].Persona
	s.bump(Event{Type: EventSessionFocused, Title: title})
	return nil
}

// ChoosePersona records the persona for a fresh chat. It does not mint a
// session or a title; it only makes the input available.
func (s *Service) ChoosePersona(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePersonaPending {
		return ErrPersonaChosen
	}
	p, ok := s.personas.FindByName(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPersonaUnknown, name)
	}

	s.phase = PhaseComposing
	s.currentPersona = p.Name
	s.bump(Event{Type: EventPersonaChosen})
	return nil
}

// Submit sends text to the completion client and, if the reply still
// belongs to the state it was requested under, reconciles it into the
// collection. Client errors are returned untouched; nothing is appended
// and the submitted text is never consumed, so the shell keeps it in the
// input field.
func (s *Service) Submit(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.phase == PhasePersonaPending {
		s.mu.Unlock()
		return ErrPersonaRequired
	}
	epoch := s.epoch
	personaName := s.currentPersona
	s.mu.Unlock()

	reply, err := s.complete.Complete(ctx, text, personaName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		// The user navigated away while the call was in flight.
		s.logger.Debug("discarding stale completion reply", zap.String("text", text))
		return nil
	}

	s.reconcile(text, reply)
	return nil
}

// reconcile is the single transition that turns a user submission and
// its reply into two appended, persisted messages. Called only from
// Submit, with the lock held and the epoch verified.
func (s *Service) reconcile(text string, reply chat.Reply) {
	if s.currentTitle == "" {
		title := s.mintTitle(text)
		s.index[title] = len(s.sessions)
		s.sessions = append(s.sessions, chat.Session{
			ID:        uuid.NewString(),
			Title:     title,
			Persona:   s.currentPersona,
			CreatedAt: time.Now().UTC(),
		})
		s.currentTitle = title
		s.phase = PhaseActive
	}

	session := s.sessions[s.index[s.currentTitle]]
	now := time.Now().UTC()
	s.messages = append(s.messages,
		chat.Message{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Title:     session.Title,
			Role:      chat.RoleUser,
			Content:   text,
			Persona:   s.currentPersona,
			CreatedAt: now,
		},
		chat.Message{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Title:     session.Title,
			Role:      chat.NormalizeRole(reply.Role),
			Content:   reply.Content,
			Persona:   s.currentPersona,
			CreatedAt: now,
		},
	)

	if err := s.history.Save(s.messages); err != nil {
		s.logger.Warn("failed to persist chat history", zap.Error(err))
	}
	s.bump(Event{Type: EventMessages, Title: session.Title})
}

// mintTitle derives a session title from the submitted text, probing
// " 1", " 2", ... suffixes until the title is not already taken.
func (s *Service) mintTitle(text string) string {
	if _, taken := s.index[text]; !taken {
		return text
	}
	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s %d", text, suffix)
		if _, taken := s.index[candidate]; !taken {
			return candidate
		}
	}
}

// Delete removes exactly the messages belonging to the titled session
// and persists the result. Deleting the focused session resets the
// machine to the fresh-chat state.
func (s *Service) Delete(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[title]
	if !ok {
		return ErrSessionNotFound
	}

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.Title != title {
			kept = append(kept, msg)
		}
	}
	s.messages = kept

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	delete(s.index, title)
	for i := idx; i < len(s.sessions); i++ {
		s.index[s.sessions[i].Title] = i
	}

	if err := s.history.Save(s.messages); err != nil {
		s.logger.Warn("failed to persist chat history after delete", zap.Error(err))
	}

	if s.currentTitle == title {
		s.phase = PhasePersonaPending
		s.currentTitle = ""
		s.currentPersona = ""
	}
	s.bump(Event{Type: EventSessionDeleted, Title: title})
	return nil
}

// State returns the snapshot the shell renders from.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Phase:        s.phase,
		CurrentTitle: s.currentTitle,
		Persona:      s.currentPersona,
	}
}

// Sessions lists known sessions in order of first appearance.
func (s *Service) Sessions() []chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Session(nil), s.sessions...)
}

// Transcript returns the titled session's messages in insertion order.
func (s *Service) Transcript(title string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[title]; !ok {
		return nil, ErrSessionNotFound
	}

	var out []chat.Message
	for _, msg := range s.messages {
		if msg.Title == title {
			out = append(out, msg)
		}
	}
	return out, nil
}

// bump invalidates in-flight replies and publishes the change. Callers
// hold the lock; notifiers must not block.
func (s *Service) bump(ev Event) {
	s.epoch++
	if s.notify != nil {
		s.notify(ev)
	}
}
