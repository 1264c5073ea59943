package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vitachat-poc-v1/server/internal/agent/catalog"
	"github.com/vitachat-poc-v1/server/internal/agent/graph"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/agent/policy"
	"github.com/vitachat-poc-v1/server/internal/agent/repo"
	"github.com/vitachat-poc-v1/server/internal/cart"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type runnerFunc func(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error)

func (f runnerFunc) Invoke(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error) {
	return f(ctx, in)
}

// blockingRunner parks every turn until release is closed or the turn is cancelled.
type blockingRunner struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error) {
	b.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return &model.CandidateResponse{Text: "Как самочувствие?", HasGreeted: true, Source: model.SourceRemote}, nil
	}
}

type harness struct {
	svc    *Service
	engine *policy.Engine
	repo   *repo.MemorySessionRepository
	carts  *cart.Store
	delays []time.Duration
	mu     sync.Mutex
}

func newHarness(t *testing.T, runner graph.Runner, cfg Config) *harness {
	t.Helper()
	store := catalog.MustLoad()
	h := &harness{
		engine: policy.NewEngine(policy.FixedPicker{}, store, 0),
		repo:   repo.NewMemorySessionRepository(time.Hour),
		carts:  cart.NewStore(),
	}
	if runner == nil {
		var err error
		runner, err = graph.BuildTurnGraph(context.Background(), graph.Config{
			Generator: model.GeneratorConfig{Provider: model.ProviderNone},
			Engine:    h.engine,
			Catalog:   store,
		})
		require.NoError(t, err)
	}
	h.svc = NewService(runner, h.engine, store, h.repo, h.carts, cfg,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return "s-test" }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			h.mu.Lock()
			h.delays = append(h.delays, d)
			h.mu.Unlock()
			return ctx.Err()
		}),
	)
	return h
}

var defaultCfg = Config{OpeningGreeting: true, TypingPerChar: 30 * time.Millisecond, TypingMax: 2 * time.Second}

func TestStartOpensWithGreeting(t *testing.T) {
	h := newHarness(t, nil, defaultCfg)

	v, err := h.svc.Start(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, "s-test", v.SessionID)
	require.Len(t, v.State.Messages, 1)
	assert.Equal(t, "Привет, Анна! 👋 Как дела?", v.State.Messages[0].Text)
	assert.True(t, v.State.HasGreeted)
	assert.Zero(t, v.State.TurnsCount)
	assert.NotEmpty(t, v.QuickReplies)
}

func TestStartRejectsUnknownPersona(t *testing.T) {
	h := newHarness(t, nil, defaultCfg)

	_, err := h.svc.Start(context.Background(), "42")
	assert.ErrorIs(t, err, errx.ErrUnknownPersona)
}

func TestSendRejectsEmptyAndUnknownSession(t *testing.T) {
	h := newHarness(t, nil, defaultCfg)

	_, err := h.svc.Send(context.Background(), "s-test", "   ")
	assert.ErrorIs(t, err, errx.ErrEmptyMessage)

	_, err = h.svc.Send(context.Background(), "missing", "привет")
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
}

func TestNewUserConversationEndsWithCardInCart(t *testing.T) {
	h := newHarness(t, nil, defaultCfg)
	ctx := context.Background()

	_, err := h.svc.Start(ctx, "0")
	require.NoError(t, err)

	var res *TurnResult
	for _, text := range []string{"Меня зовут Иван", "25", "хочу больше энергии"} {
		res, err = h.svc.Send(ctx, "s-test", text)
		require.NoError(t, err)
		assert.False(t, res.Reply.ShowCard, text)
	}
	assert.Equal(t, model.CollectedInfo{Name: "Иван", Age: 25, Goal: "хочу больше энергии"}, res.View.State.CollectedInfo)

	res, err = h.svc.Send(ctx, "s-test", "да")
	require.NoError(t, err)
	assert.True(t, res.Reply.ShowCard)
	assert.Equal(t, "energy-plus", res.Reply.ProductID)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Energy+ Active", res.Product.Name)
	assert.True(t, res.AddedToCart)
	assert.Equal(t, 1, res.View.Cart.Quantity("energy-plus"))
	assert.Equal(t, 4, res.View.State.TurnsCount)
	assert.Equal(t, model.StageProducts, res.View.State.Stage)
}

func TestSwitchPersonaResetsConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("without opening greeting", func(t *testing.T) {
		h := newHarness(t, nil, Config{})
		_, err := h.svc.Start(ctx, "1")
		require.NoError(t, err)
		res, err := h.svc.Send(ctx, "s-test", "Привет")
		require.NoError(t, err)
		require.Equal(t, 1, res.View.State.TurnsCount)
		require.True(t, res.View.State.HasGreeted)

		v, err := h.svc.SwitchPersona(ctx, "s-test", "2")
		require.NoError(t, err)
		assert.Equal(t, "2", v.State.PersonaID)
		assert.Zero(t, v.State.TurnsCount)
		assert.False(t, v.State.HasGreeted)
		assert.Empty(t, v.State.Messages)

		res, err = h.svc.Send(ctx, "s-test", "Привет")
		require.NoError(t, err)
		assert.Equal(t, 1, res.View.State.TurnsCount)
		assert.Equal(t, "Привет 👋 Михаил! Как дела?", res.Reply.Text)
	})

	t.Run("with opening greeting", func(t *testing.T) {
		h := newHarness(t, nil, defaultCfg)
		_, err := h.svc.Start(ctx, "1")
		require.NoError(t, err)
		_, err = h.svc.Send(ctx, "s-test", "устаю")
		require.NoError(t, err)

		v, err := h.svc.SwitchPersona(ctx, "s-test", "2")
		require.NoError(t, err)
		assert.Zero(t, v.State.TurnsCount)
		require.Len(t, v.State.Messages, 1)
		assert.Equal(t, "Привет, Михаил! 👋 Как дела?", v.State.Messages[0].Text)
	})

	t.Run("unknown persona or session", func(t *testing.T) {
		h := newHarness(t, nil, defaultCfg)
		_, err := h.svc.SwitchPersona(ctx, "s-test", "2")
		assert.ErrorIs(t, err, errx.ErrSessionNotFound)

		_, err = h.svc.Start(ctx, "1")
		require.NoError(t, err)
		_, err = h.svc.SwitchPersona(ctx, "s-test", "42")
		assert.ErrorIs(t, err, errx.ErrUnknownPersona)
	})
}

func TestSecondMessageWhileTurnPendingIsRejected(t *testing.T) {
	br := newBlockingRunner()
	h := newHarness(t, br, defaultCfg)
	ctx := context.Background()
	_, err := h.svc.Start(ctx, "1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Send(ctx, "s-test", "устаю")
		done <- err
	}()
	<-br.entered

	v, err := h.svc.Get(ctx, "s-test")
	require.NoError(t, err)
	assert.True(t, v.Typing)

	_, err = h.svc.Send(ctx, "s-test", "ещё вопрос")
	assert.ErrorIs(t, err, errx.ErrTurnInProgress)

	close(br.release)
	require.NoError(t, <-done)

	v, err = h.svc.Get(ctx, "s-test")
	require.NoError(t, err)
	assert.False(t, v.Typing)
	assert.Equal(t, 1, v.State.TurnsCount)
}

func TestPersonaSwitchDropsPendingTurn(t *testing.T) {
	br := newBlockingRunner()
	h := newHarness(t, br, defaultCfg)
	ctx := context.Background()
	_, err := h.svc.Start(ctx, "1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Send(ctx, "s-test", "устаю")
		done <- err
	}()
	<-br.entered

	_, err = h.svc.SwitchPersona(ctx, "s-test", "3")
	require.NoError(t, err)
	assert.ErrorIs(t, <-done, errx.ErrTurnDiscarded)

	v, err := h.svc.Get(ctx, "s-test")
	require.NoError(t, err)
	assert.Equal(t, "3", v.State.PersonaID)
	assert.Zero(t, v.State.TurnsCount)
	require.Len(t, v.State.Messages, 1, "only the new opening greeting")
}

func TestDeleteDropsPendingTurnAndCart(t *testing.T) {
	br := newBlockingRunner()
	h := newHarness(t, br, defaultCfg)
	ctx := context.Background()
	_, err := h.svc.Start(ctx, "1")
	require.NoError(t, err)
	_, err = h.carts.Update("s-test", func(c *cart.Cart) error {
		c.Add(model.Product{ID: "sleep-well", Price: 1290})
		return nil
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Send(ctx, "s-test", "устаю")
		done <- err
	}()
	<-br.entered

	require.NoError(t, h.svc.Delete(ctx, "s-test"))
	assert.ErrorIs(t, <-done, errx.ErrTurnDiscarded)

	_, err = h.svc.Get(ctx, "s-test")
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
	assert.Empty(t, h.carts.Get("s-test").Items)
}

func TestTurnSurvivesCancelledRequestContext(t *testing.T) {
	h := newHarness(t, nil, defaultCfg)
	_, err := h.svc.Start(context.Background(), "1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := h.svc.Send(ctx, "s-test", "устаю")
	require.NoError(t, err)
	assert.Equal(t, 1, res.View.State.TurnsCount)
}

func TestTypingDelayIsProportionalAndCapped(t *testing.T) {
	reply := "Ок"
	runner := runnerFunc(func(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error) {
		return &model.CandidateResponse{Text: reply, HasGreeted: true, Source: model.SourceRemote}, nil
	})
	h := newHarness(t, runner, defaultCfg)
	ctx := context.Background()
	_, err := h.svc.Start(ctx, "1")
	require.NoError(t, err)

	_, err = h.svc.Send(ctx, "s-test", "привет")
	require.NoError(t, err)

	reply = "Это очень длинный ответ, который печатается дольше двух секунд при тридцати миллисекундах на символ."
	_, err = h.svc.Send(ctx, "s-test", "и что")
	require.NoError(t, err)

	require.Len(t, h.delays, 2)
	assert.Equal(t, 60*time.Millisecond, h.delays[0])
	assert.Equal(t, 2*time.Second, h.delays[1])
}

func TestGraphFailureFallsBackToPolicy(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error) {
		return nil, errors.New("graph exploded")
	})
	h := newHarness(t, runner, defaultCfg)
	ctx := context.Background()
	_, err := h.svc.Start(ctx, "1")
	require.NoError(t, err)

	res, err := h.svc.Send(ctx, "s-test", "устаю")
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, res.Reply.Source)
	assert.Equal(t, "Понимаю. Расскажи подробнее?", res.Reply.Text)
	assert.Equal(t, 1, res.View.State.TurnsCount)
}

func TestUnknownStoredPersonaIsNotFolded(t *testing.T) {
	h := newHarness(t, nil, defaultCfg)
	ctx := context.Background()
	require.NoError(t, h.repo.Save(ctx, model.NewConversationState("s-test", "42")))

	res, err := h.svc.Send(ctx, "s-test", "привет")
	require.NoError(t, err)
	assert.Equal(t, errx.ReselectPersonaMessage, res.Reply.Text)
	assert.Equal(t, model.SourceSystem, res.Reply.Source)
	assert.Zero(t, res.View.State.TurnsCount)
	assert.Empty(t, res.View.State.Messages)
}

func TestRepeatedObjectionsCloseRegardlessOfGenerator(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error) {
		return nil, errors.New("should not matter")
	})
	h := newHarness(t, runner, defaultCfg)
	ctx := context.Background()
	_, err := h.svc.Start(ctx, "1")
	require.NoError(t, err)

	var res *TurnResult
	for _, text := range []string{"дорого", "нет", "не верю"} {
		res, err = h.svc.Send(ctx, "s-test", text)
		require.NoError(t, err)
	}
	assert.Equal(t, policy.ClosingPhrase, res.Reply.Text)
	assert.Equal(t, model.StageObjections, res.View.State.Stage)
}
