package storage

// Backend names accepted by the factory.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// Config selects and parameterizes a store backend.
type Config struct {
	// Backend is one of sqlite, bolt, or redis.
	Backend string
	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string
	// BoltPath is the database file path for the bolt backend.
	BoltPath string
	// RedisAddr is the host:port of the redis backend.
	RedisAddr string
	// RedisPassword is the optional redis AUTH password.
	RedisPassword string
	// RedisDB is the redis logical database index.
	RedisDB int
}
