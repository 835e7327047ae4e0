package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderIdempotencyKey      = "Idempotency-Key"
	HeaderIdempotencyReplayed = "Idempotent-Replayed"

	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
	maxIdempotencyKey  = 255
)

func idempotencyKeyFromHeader(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
}

// idempotencyRecord is the stored first response. Body is snappy-compressed.
type idempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type idempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newIdempotencyStore(client *redis.Client) *idempotencyStore {
	if client == nil {
		return nil
	}
	return &idempotencyStore{client: client, ttl: idempotencyTTL}
}

// idempotencyRedisKey scopes a key to the route, the resolved request path and
// the caller, so one key reused against another resource is a fresh request.
func idempotencyRedisKey(route, path, user, key string) string {
	return "idem:" + route + ":" + path + ":" + user + ":" + key
}

func (s *idempotencyStore) load(ctx context.Context, key string) (*idempotencyRecord, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *idempotencyStore) save(ctx context.Context, key string, rec idempotencyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

func (s *idempotencyStore) lock(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, key+":lock", "1", idempotencyLockTTL).Result()
}

func (s *idempotencyStore) unlock(ctx context.Context, key string) {
	_ = s.client.Del(ctx, key+":lock").Err()
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotent replays the first successful response stored under the caller's
// Idempotency-Key for route and path. Reusing a key with a different body is rejected.
// Without a redis client or a key the handler runs normally.
func (s *Server) Idempotent(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := idempotencyKeyFromHeader(c)
		if s.idempotency == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKey {
			AbortWithError(c, newValidationError(HeaderIdempotencyKey, "too_long", "idempotency key is too long"))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		requestHash := hex.EncodeToString(sum[:])

		user := "anonymous"
		if actor, ok := actorFrom(c); ok {
			user = string(actor.Role)
			if actor.UserID != 0 {
				user = actor.UserID.String()
			}
		}
		redisKey := idempotencyRedisKey(route, c.Request.URL.Path, user, key)
		ctx := c.Request.Context()
		log := loggerFrom(c)

		if s.replayIdempotent(c, redisKey, requestHash) {
			return
		}

		locked, err := s.idempotency.lock(ctx, redisKey)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !locked {
			AbortWithError(c, ErrIdempotencyInProgress)
			return
		}
		defer s.idempotency.unlock(context.WithoutCancel(ctx), redisKey)

		// A concurrent request may have finished between the first lookup and the lock.
		if s.replayIdempotent(c, redisKey, requestHash) {
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		rec := idempotencyRecord{
			RequestHash: requestHash,
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        snappy.Encode(nil, writer.body.Bytes()),
		}
		if err := s.idempotency.save(context.WithoutCancel(ctx), redisKey, rec); err != nil {
			log.Warn("failed to store idempotent response", zap.String("route", route), zap.Error(err))
		}
	}
}

func (s *Server) replayIdempotent(c *gin.Context, redisKey, requestHash string) bool {
	rec, err := s.idempotency.load(c.Request.Context(), redisKey)
	if err != nil {
		AbortWithError(c, err)
		return true
	}
	if rec == nil {
		return false
	}
	if rec.RequestHash != requestHash {
		AbortWithError(c, ErrIdempotencyConflict)
		return true
	}
	body, err := snappy.Decode(nil, rec.Body)
	if err != nil {
		AbortWithError(c, err)
		return true
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	c.Data(rec.Status, rec.ContentType, body)
	c.Abort()
	return true
}
