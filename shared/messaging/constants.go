package messaging

// Exchange Names
const (
	// CacheInvalidationExchange - fanout exchange, через который реплики сбрасывают кэш пазлов.
	CacheInvalidationExchange     = "puzzle_cache_invalidation"
	cacheInvalidationExchangeType = "fanout"
)

const contentTypeJSON = "application/json"
