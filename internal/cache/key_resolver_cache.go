package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// defaultKeyTTL keeps the revocation window short while still
// absorbing the per-request lookup on the external gateway.
const defaultKeyTTL = 45 * time.Second

// KeyResolverCache stores the hot-path key-hash to owner lookup for
// gateway authentication.
type KeyResolverCache struct {
	owners Cache[string, snowflake.ID]
	ttl    time.Duration
}

// NewKeyResolverCache returns an in-memory cache tuned for key auth.
func NewKeyResolverCache() *KeyResolverCache {
	return &KeyResolverCache{
		owners: NewTTLCache[string, snowflake.ID](),
		ttl:    defaultKeyTTL,
	}
}

func (c *KeyResolverCache) GetOwner(keyHash string) (snowflake.ID, bool) {
	return c.owners.Get(keyHash)
}

func (c *KeyResolverCache) SetOwner(keyHash string, userID snowflake.ID) {
	if userID == 0 {
		return
	}
	c.owners.Set(keyHash, userID, c.ttl)
}

func (c *KeyResolverCache) Invalidate(keyHash string) {
	c.owners.Delete(keyHash)
}

var Module = fx.Module("cache",
	fx.Provide(NewKeyResolverCache),
)
