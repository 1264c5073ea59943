package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

const (
	fieldPersonaID  = "persona_id"
	fieldTurnsCount = "turns_count"
	fieldHasGreeted = "has_greeted"
	fieldStage      = "stage"
	fieldCollected  = "collected_info"
	fieldUpdatedAt  = "updated_at"
)

// RedisSessionRepository stores a session as a meta hash plus a list of
// JSON encoded messages. Both keys share the session TTL, refreshed on touch.
type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) metaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

func (r *RedisSessionRepository) messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

func (r *RedisSessionRepository) Save(ctx context.Context, state *model.ConversationState) error {
	meta, err := encodeMeta(state)
	if err != nil {
		logx.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to encode session meta")
		return err
	}
	rows := make([]any, 0, len(state.Messages))
	for i, m := range state.Messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("session_id", state.SessionID).Int("index", i).Msg("failed to marshal message")
			return fmt.Errorf("marshal message at index %d: %w", i, err)
		}
		rows = append(rows, b)
	}

	mk, lk := r.metaKey(state.SessionID), r.messagesKey(state.SessionID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, mk, lk)
		p.HSet(ctx, mk, meta)
		if len(rows) > 0 {
			p.RPush(ctx, lk, rows...)
		}
		if r.ttl > 0 {
			p.Expire(ctx, mk, r.ttl)
			p.Expire(ctx, lk, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", mk).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Load(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	mk, lk := r.metaKey(sessionID), r.messagesKey(sessionID)

	meta, err := r.rdb.HGetAll(ctx, mk).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", mk).Msg("failed to load session meta from redis")
		return nil, errx.WrapRedis(err)
	}
	if len(meta) == 0 {
		return nil, errx.ErrSessionNotFound
	}

	rows, err := r.rdb.LRange(ctx, lk, 0, -1).Result()
	if err != nil && err != redis.Nil {
		logx.Error().Err(err).Str("key", lk).Msg("failed to load session messages from redis")
		return nil, errx.WrapRedis(err)
	}

	state, err := decodeMeta(sessionID, meta)
	if err != nil {
		logx.Error().Err(err).Str("key", mk).Msg("failed to decode session meta")
		return nil, err
	}
	state.Messages = make([]model.Message, 0, len(rows))
	for i, s := range rows {
		var m model.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		state.Messages = append(state.Messages, m)
	}

	// extend TTL on touch
	if r.ttl > 0 {
		for _, key := range []string{mk, lk} {
			if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
				logx.Warn().Err(err).Str("key", key).Dur("ttl", r.ttl).Msg("failed to refresh TTL")
			}
		}
	}
	return state, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	mk, lk := r.metaKey(sessionID), r.messagesKey(sessionID)
	if err := r.rdb.Del(ctx, mk, lk).Err(); err != nil {
		logx.Error().Err(err).Str("key", mk).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func encodeMeta(state *model.ConversationState) (map[string]any, error) {
	info, err := json.Marshal(state.CollectedInfo)
	if err != nil {
		return nil, fmt.Errorf("marshal collected info: %w", err)
	}
	return map[string]any{
		fieldPersonaID:  state.PersonaID,
		fieldTurnsCount: state.TurnsCount,
		fieldHasGreeted: strconv.FormatBool(state.HasGreeted),
		fieldStage:      string(state.Stage),
		fieldCollected:  string(info),
		fieldUpdatedAt:  state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decodeMeta(sessionID string, meta map[string]string) (*model.ConversationState, error) {
	state := &model.ConversationState{
		SessionID: sessionID,
		PersonaID: meta[fieldPersonaID],
		Stage:     model.Stage(meta[fieldStage]),
	}
	var err error
	if state.TurnsCount, err = strconv.Atoi(meta[fieldTurnsCount]); err != nil {
		return nil, fmt.Errorf("%s parse: %w", fieldTurnsCount, err)
	}
	if state.HasGreeted, err = strconv.ParseBool(meta[fieldHasGreeted]); err != nil {
		return nil, fmt.Errorf("%s parse: %w", fieldHasGreeted, err)
	}
	if raw := meta[fieldCollected]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &state.CollectedInfo); err != nil {
			return nil, fmt.Errorf("%s parse: %w", fieldCollected, err)
		}
	}
	if raw := meta[fieldUpdatedAt]; raw != "" {
		if state.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("%s parse: %w", fieldUpdatedAt, err)
		}
	}
	return state, nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
