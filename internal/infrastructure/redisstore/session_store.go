package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/fernanda-api/internal/application/agent"
	"github.com/jhoicas/fernanda-api/internal/domain"
)

var _ agent.SessionStore = (*SessionStore)(nil)

const keyPrefix = "fernanda:session:"

// Config conexión y retención de sesiones.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// kv subconjunto de comandos usados; *redis.Client lo implementa.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionStore sesiones de conversación serializadas en JSON con TTL renovado en cada Save.
type SessionStore struct {
	client kv
	ttl    time.Duration
}

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %v", domain.ErrConnectivity, cfg.Addr, err)
	}
	return rdb, nil
}

// New construye el store sobre un cliente existente.
func New(client kv, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func key(conversationID string) string {
	return keyPrefix + conversationID
}

// Load devuelve la sesión guardada o una nueva si no existe (o expiró).
func (s *SessionStore) Load(ctx context.Context, conversationID string) (*agent.Session, error) {
	raw, err := s.client.Get(ctx, key(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return agent.NewSession(conversationID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", domain.ErrConnectivity, err)
	}
	var sess agent.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: sesión corrupta %s: %v", domain.ErrRemote, conversationID, err)
	}
	if sess.ConversationID == "" {
		sess.ConversationID = conversationID
	}
	return &sess, nil
}

// Save persiste la sesión y renueva el TTL.
func (s *SessionStore) Save(ctx context.Context, sess *agent.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: serializar sesión: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.ConversationID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrConnectivity, err)
	}
	return nil
}

// Delete elimina la sesión; no es error si no existía.
func (s *SessionStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, key(conversationID)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", domain.ErrConnectivity, err)
	}
	return nil
}
