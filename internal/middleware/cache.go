package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-manager/internal/config"
)

// captureWriter copies the response body, up to limit bytes, while
// forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.truncated = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// Cached entries of one user live under a generation number.  A write by
// the user bumps the generation, so every older entry becomes unreachable
// and expires on its own.
func generationKey(prefix, uid string) string {
	return fmt.Sprintf("%s:user:%s:gen", prefix, uid)
}

func cacheKey(prefix, uid string, gen int64, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:user:%s:g%d:%x", prefix, uid, gen, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful responses of authenticated requests per
// user.  It must run after SessionAuth.  A successful request with any
// non-cached method invalidates the caller's entries.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := userID(c)
			if uid == "anon" {
				return next(c)
			}
			ctx := c.Request().Context()
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return invalidateAfter(ctx, next, c, rdb, generationKey(cfg.Prefix, uid), log)
			}

			gen, err := rdb.Get(ctx, generationKey(cfg.Prefix, uid)).Int64()
			if err != nil && err != redis.Nil {
				log.Warn("cache unavailable", "err", err)
				return next(c)
			}
			key := cacheKey(cfg.Prefix, uid, gen, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del(echo.HeaderXRequestID)
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
					log.Warn("cache store failed", "err", err)
				}
			}
			return nil
		}
	}
}

// invalidateAfter runs next and bumps the user's generation as soon as a
// success status is written, before the body reaches the client.
func invalidateAfter(ctx context.Context, next echo.HandlerFunc, c echo.Context, rdb *redis.Client, genKey string, log *slog.Logger) error {
	c.Response().Writer = &invalidatingWriter{
		ResponseWriter: c.Response().Writer,
		bump: func() {
			if err := rdb.Incr(context.WithoutCancel(ctx), genKey).Err(); err != nil {
				log.Warn("cache invalidation failed", "err", err)
			}
		},
	}
	return next(c)
}

type invalidatingWriter struct {
	http.ResponseWriter
	bump   func()
	bumped bool
}

func (w *invalidatingWriter) WriteHeader(code int) {
	if !w.bumped && code < http.StatusBadRequest {
		w.bumped = true
		w.bump()
	}
	w.ResponseWriter.WriteHeader(code)
}
