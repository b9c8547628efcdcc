package cache

import "errors"

// ErrCacheUnavailable is returned when Redis is not healthy
var ErrCacheUnavailable = errors.New("cache unavailable - Redis is not healthy")
