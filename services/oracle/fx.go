package oracle

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("oracle",
	fx.Provide(provideStore),
)

type storeParams struct {
	fx.In
	DB    *gorm.DB
	Cache *redis.Client `optional:"true"`
}

func provideStore(p storeParams) (*Store, Reader, Writer) {
	store := NewStore(p.DB, p.Cache)
	return store, store, store
}
