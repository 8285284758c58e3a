package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "chat_transcript:"
	transcriptTTL       = 30 * 24 * time.Hour
)

// TranscriptMessage is one chat turn kept for history and audit.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore records chat turns. Transcripts are observational: a store
// failure never blocks the conversation.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, msg TranscriptMessage) error
	List(ctx context.Context, conversationID string, limit int64) ([]TranscriptMessage, error)
}

// RedisTranscriptStore keeps per-conversation transcripts in capped Redis
// lists with a rolling TTL.
type RedisTranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

// NewRedisTranscriptStore creates a Redis-backed transcript store. Returns nil
// when no client is configured so callers can treat transcripts as optional.
func NewRedisTranscriptStore(client *redis.Client) *RedisTranscriptStore {
	if client == nil {
		return nil
	}
	return &RedisTranscriptStore{
		redis:       client,
		tracer:      otel.Tracer("clinic.internal.conversation.transcript"),
		maxMessages: 250,
	}
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}

// Append adds a message to the conversation transcript.
func (s *RedisTranscriptStore) Append(ctx context.Context, conversationID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if conversationID == "" {
		return errors.New("conversation: transcript conversationID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

// List returns up to limit most recent messages, oldest first.
func (s *RedisTranscriptStore) List(ctx context.Context, conversationID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if conversationID == "" {
		return nil, errors.New("conversation: transcript conversationID required")
	}
	if limit <= 0 {
		limit = s.maxMessages
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), -limit, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list transcript messages: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue // skip unreadable entries rather than failing the read
		}
		out = append(out, msg)
	}
	return out, nil
}

// MemoryTranscriptStore is an in-process TranscriptStore for tests and demos.
type MemoryTranscriptStore struct {
	mu       sync.Mutex
	messages map[string][]TranscriptMessage
}

// NewMemoryTranscriptStore creates an in-memory transcript store.
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{messages: make(map[string][]TranscriptMessage)}
}

// Append implements TranscriptStore.
func (s *MemoryTranscriptStore) Append(_ context.Context, conversationID string, msg TranscriptMessage) error {
	if conversationID == "" {
		return errors.New("conversation: transcript conversationID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return nil
}

// List implements TranscriptStore.
func (s *MemoryTranscriptStore) List(_ context.Context, conversationID string, limit int64) ([]TranscriptMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	out := make([]TranscriptMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
