// Package refdata caches the clinic's reference-option lists on the client.
// Lists are fetched on first use and kept for a TTL; the option manager
// invalidates a category after every change it makes.
package refdata

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/opd-desk/internal/model"
)

const DefaultTTL = 5 * time.Minute

// Source is satisfied by *apiclient.Client.
type Source interface {
	ListOptions(ctx context.Context, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error)
}

type Cache struct {
	src   Source
	lists *cache.Cache
}

func New(src Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{src: src, lists: cache.New(ttl, 2*ttl)}
}

func key(category model.OptionCategory, activeOnly bool) string {
	if activeOnly {
		return string(category) + ":active"
	}
	return string(category) + ":all"
}

func (c *Cache) get(ctx context.Context, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error) {
	k := key(category, activeOnly)
	if v, ok := c.lists.Get(k); ok {
		return v.([]*model.ReferenceOption), nil
	}
	opts, err := c.src.ListOptions(ctx, category, activeOnly)
	if err != nil {
		return nil, err
	}
	c.lists.SetDefault(k, opts)
	return opts, nil
}

// Active returns the options offered for new selections.
func (c *Cache) Active(ctx context.Context, category model.OptionCategory) ([]*model.ReferenceOption, error) {
	return c.get(ctx, category, true)
}

// All includes inactive options, for settings screens.
func (c *Cache) All(ctx context.Context, category model.OptionCategory) ([]*model.ReferenceOption, error) {
	return c.get(ctx, category, false)
}

// Names returns the active option names in display order.
func (c *Cache) Names(ctx context.Context, category model.OptionCategory) ([]string, error) {
	opts, err := c.Active(ctx, category)
	if err != nil {
		return nil, err
	}
	return model.OptionNames(opts), nil
}

func (c *Cache) Invalidate(category model.OptionCategory) {
	c.lists.Delete(key(category, true))
	c.lists.Delete(key(category, false))
}

func (c *Cache) Flush() {
	c.lists.Flush()
}
