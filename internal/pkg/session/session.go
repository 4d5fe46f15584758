package session

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/oranet/oranet-backend/internal/pkg/cache"
	"github.com/oranet/oranet-backend/internal/pkg/env"
)

var sessionStore *session.Store

func NewSessionStore() *session.Store {
	// Reuse the cache connection parameters for session storage
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Sessions live in database 1, the cache uses database 0
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		Expiration:     time.Hour * 24,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

func GetSessionStore() *session.Store {
	if sessionStore == nil {
		return NewSessionStore()
	}
	return sessionStore
}

// SetSessionValue stores a single key/value pair in the request session.
func SetSessionValue(c *fiber.Ctx, key string, value interface{}) error {
	sess, err := GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue reads a value from the request session, nil if absent.
func GetSessionValue(c *fiber.Ctx, key string) interface{} {
	sess, err := GetSessionStore().Get(c)
	if err != nil {
		return nil
	}
	return sess.Get(key)
}

// DestroySession drops the whole session, used on logout.
func DestroySession(c *fiber.Ctx) error {
	sess, err := GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
