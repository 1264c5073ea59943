// Package chat owns the session lifecycle: it creates sessions, runs one turn
// at a time through the turn graph, applies the typing delay and persists the
// folded state.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vitachat-poc-v1/server/internal/agent/graph"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/agent/policy"
	"github.com/vitachat-poc-v1/server/internal/cart"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

// Catalog resolves personas and products.
type Catalog interface {
	Persona(id string) (*model.Persona, bool)
	Product(id string) (*model.Product, bool)
}

type Config struct {
	OpeningGreeting bool
	TypingPerChar   time.Duration
	TypingMax       time.Duration
}

// ConfigFrom maps the env backed conversation config onto the service config.
func ConfigFrom(c model.ConversationConfig) Config {
	return Config{
		OpeningGreeting: c.OpeningGreet,
		TypingPerChar:   c.TypingPerChar,
		TypingMax:       c.TypingMax,
	}
}

type Option func(*Service)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleep overrides how the typing delay is waited out.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

type Service struct {
	runner  graph.Runner
	engine  *policy.Engine
	catalog Catalog
	repo    model.SessionRepository
	carts   *cart.Store
	cfg     Config

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	newID func() string

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the in-process coordination for one session id.
type session struct {
	// slot admits one pending turn.
	slot *semaphore.Weighted

	// mu guards the fields below and serialises state writes with resets.
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	typing     bool
}

func NewService(
	runner graph.Runner,
	engine *policy.Engine,
	catalog Catalog,
	repo model.SessionRepository,
	carts *cart.Store,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		runner:   runner,
		engine:   engine,
		catalog:  catalog,
		repo:     repo,
		carts:    carts,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepCtx,
		newID:    uuid.NewString,
		sessions: map[string]*session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is a snapshot of a session for the UI.
type View struct {
	SessionID    string                   `json:"session_id"`
	Persona      *model.Persona           `json:"persona"`
	State        *model.ConversationState `json:"state"`
	Typing       bool                     `json:"typing"`
	QuickReplies []string                 `json:"quick_replies"`
	Cart         *cart.Cart               `json:"cart"`
	Totals       cart.Totals              `json:"totals"`
}

// TurnResult is the answered turn plus the session after it.
type TurnResult struct {
	Reply       model.CandidateResponse `json:"reply"`
	Product     *model.Product          `json:"product,omitempty"`
	AddedToCart bool                    `json:"added_to_cart"`
	View        *View                   `json:"session"`
}

func (s *Service) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{slot: semaphore.NewWeighted(1)}
		s.sessions[id] = sess
	}
	return sess
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Start creates a session bound to personaID.
func (s *Service) Start(ctx context.Context, personaID string) (*View, error) {
	persona, ok := s.catalog.Persona(personaID)
	if !ok {
		return nil, errx.ErrUnknownPersona
	}
	state := s.freshState(s.newID(), persona)
	if err := s.repo.Save(ctx, state); err != nil {
		return nil, err
	}
	log := logx.Session(state.SessionID, personaID)
	log.Info().Msg("session started")
	return s.view(state, persona, false), nil
}

// SwitchPersona discards the conversation, and any turn still being
// answered, and starts over with personaID. The cart is kept.
func (s *Service) SwitchPersona(ctx context.Context, sessionID, personaID string) (*View, error) {
	persona, ok := s.catalog.Persona(personaID)
	if !ok {
		return nil, errx.ErrUnknownPersona
	}
	if _, err := s.repo.Load(ctx, sessionID); err != nil {
		return nil, err
	}

	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.discard()

	state := s.freshState(sessionID, persona)
	if err := s.repo.Save(ctx, state); err != nil {
		return nil, err
	}
	log := logx.Session(sessionID, personaID)
	log.Info().Msg("persona switched, conversation reset")
	return s.view(state, persona, false), nil
}

// Delete discards the session, its cart and any pending turn.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	sess := s.session(sessionID)
	sess.mu.Lock()
	sess.discard()
	err := s.repo.Delete(ctx, sessionID)
	sess.mu.Unlock()
	if err != nil {
		return err
	}
	s.carts.Delete(sessionID)
	s.forget(sessionID)
	return nil
}

// Get returns the current session view.
func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	state, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errx.ErrSessionNotFound) {
			s.forget(sessionID)
		}
		return nil, err
	}
	sess := s.session(sessionID)
	sess.mu.Lock()
	typing := sess.typing
	sess.mu.Unlock()

	persona, _ := s.catalog.Persona(state.PersonaID)
	return s.view(state, persona, typing), nil
}

// Send answers one user message. At most one message per session is answered
// at a time; a second one gets errx.ErrTurnInProgress. The turn is not bound
// to ctx: only a persona switch or deletion cancels it, in which case the
// result is dropped and errx.ErrTurnDiscarded returned.
func (s *Service) Send(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errx.ErrEmptyMessage
	}

	sess := s.session(sessionID)
	if !sess.slot.TryAcquire(1) {
		return nil, errx.ErrTurnInProgress
	}
	defer sess.slot.Release(1)

	sess.mu.Lock()
	state, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		sess.mu.Unlock()
		if errors.Is(err, errx.ErrSessionNotFound) {
			s.forget(sessionID)
		}
		return nil, err
	}
	gen := sess.generation
	turnCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess.cancel = cancel
	sess.typing = true
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		if sess.generation == gen {
			sess.cancel = nil
			sess.typing = false
		}
		sess.mu.Unlock()
		cancel()
	}()

	log := logx.Session(sessionID, state.PersonaID)
	persona, _ := s.catalog.Persona(state.PersonaID)

	out, err := s.runner.Invoke(turnCtx, model.TurnInput{State: state, Text: text})
	if err != nil {
		if turnCtx.Err() != nil {
			return nil, errx.ErrTurnDiscarded
		}
		log.Error().Err(err).Msg("turn graph failed, answering with fallback policy")
		out = s.safetyNet(state, persona, text)
	}

	if err := s.sleep(turnCtx, s.typingDelay(out.Text)); err != nil {
		return nil, errx.ErrTurnDiscarded
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.generation != gen {
		return nil, errx.ErrTurnDiscarded
	}

	res := &TurnResult{Reply: *out}
	if out.Source == model.SourceSystem {
		// nothing to fold: the session has to be pointed at a valid persona first
		res.View = s.view(state, persona, false)
		return res, nil
	}

	next := policy.Fold(state, text, *out, s.now())
	if err := s.repo.Save(turnCtx, next); err != nil {
		return nil, err
	}

	if out.ShowCard {
		if p, ok := s.catalog.Product(out.ProductID); ok {
			res.Product = p
			if _, err := s.carts.Update(sessionID, func(c *cart.Cart) error {
				res.AddedToCart = c.AddShown(*p)
				return nil
			}); err != nil {
				log.Warn().Err(err).Str("product_id", p.ID).Msg("failed to add shown product to cart")
			}
		}
	}

	log.Debug().
		Int("turn", next.TurnsCount).
		Str("source", string(out.Source)).
		Str("stage", string(next.Stage)).
		Bool("card", out.ShowCard).
		Msg("turn answered")

	res.View = s.view(next, persona, false)
	return res, nil
}

// safetyNet answers a turn without the graph so no message goes unanswered.
func (s *Service) safetyNet(state *model.ConversationState, persona *model.Persona, text string) *model.CandidateResponse {
	if persona == nil {
		return &model.CandidateResponse{
			Text:          errx.ReselectPersonaMessage,
			HasGreeted:    state.HasGreeted,
			CollectedInfo: state.CollectedInfo,
			Stage:         state.Stage,
			Source:        model.SourceSystem,
		}
	}
	out := s.engine.Respond(s.engine.Begin(state, persona, text))
	return &out
}

func (s *Service) typingDelay(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * s.cfg.TypingPerChar
	if s.cfg.TypingMax > 0 && d > s.cfg.TypingMax {
		d = s.cfg.TypingMax
	}
	return d
}

func (s *Service) freshState(sessionID string, persona *model.Persona) *model.ConversationState {
	state := model.NewConversationState(sessionID, persona.ID)
	state.UpdatedAt = s.now()
	if s.cfg.OpeningGreeting {
		state = s.engine.Open(state, persona, s.now())
	}
	return state
}

func (s *Service) view(state *model.ConversationState, persona *model.Persona, typing bool) *View {
	c := s.carts.Get(state.SessionID)
	v := &View{
		SessionID: state.SessionID,
		Persona:   persona,
		State:     state,
		Typing:    typing,
		Cart:      c,
		Totals:    c.Totals(),
	}
	if persona != nil {
		v.QuickReplies = policy.QuickReplies(state, persona)
	}
	return v
}

// discard drops the pending turn, if any. Callers hold sess.mu.
func (sess *session) discard() {
	sess.generation++
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.typing = false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
