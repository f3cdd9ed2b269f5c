package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis normalizes Redis errors into *Error. A redis.Nil miss maps to
// not-found; any other failure surfaces as a bad gateway.
func WrapRedis(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	default:
		return New(err, http.StatusBadGateway, RedisErrorMessage)
	}
}
