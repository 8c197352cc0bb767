package records

import (
	"context"
	"log"
	"sort"

	"github.com/anoixa/watchbox/cache"
	"github.com/anoixa/watchbox/database/models"
)

// sortRecords 与数据库排序一致：acquired ASC, price DESC, created_at ASC
func sortRecords(list []models.Watch) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Acquired != b.Acquired {
			return !a.Acquired
		}
		if a.Price != b.Price {
			return a.Price > b.Price
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func sortBrands(list []models.Brand) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
}

// loadRecords 读取缓存，未命中时从数据库加载并写回
func (s *Service) loadRecords(ctx context.Context, owner string) ([]models.Watch, error) {
	key := cache.Records.Build(owner)

	var list []models.Watch
	if err := s.cache.Get(ctx, key, &list); err == nil {
		return list, nil
	} else if !cache.IsCacheMiss(err) {
		log.Printf("[RecordStore] Cache read failed for %s: %v", key, err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		unlock := s.lock(key)
		defer unlock()

		loaded, err := s.watches.ListByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			loaded = []models.Watch{}
		}
		if err := s.cache.Set(ctx, key, loaded, s.opts.CollectionTTL); err != nil {
			log.Printf("[RecordStore] Cache write failed for %s: %v", key, err)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	// singleflight 共享结果，返回副本
	shared := v.([]models.Watch)
	out := make([]models.Watch, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *Service) loadBrands(ctx context.Context, scope string) ([]models.Brand, error) {
	key := cache.BrandScopeKey(scope)

	var list []models.Brand
	if err := s.cache.Get(ctx, key, &list); err == nil {
		return list, nil
	} else if !cache.IsCacheMiss(err) {
		log.Printf("[RecordStore] Cache read failed for %s: %v", key, err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		unlock := s.lock(key)
		defer unlock()

		loaded, err := s.brands.List(ctx, scope)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			loaded = []models.Brand{}
		}
		if err := s.cache.Set(ctx, key, loaded, s.opts.CollectionTTL); err != nil {
			log.Printf("[RecordStore] Cache write failed for %s: %v", key, err)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]models.Brand)
	out := make([]models.Brand, len(shared))
	copy(out, shared)
	return out, nil
}

// updateCached 在 key 锁内修改已缓存的列表，未缓存时不做任何事
// 修改失败时删除缓存，下次读取重新加载
func updateCached[T any](ctx context.Context, s *Service, key string, mutate func([]T) []T) {
	unlock := s.lock(key)
	defer unlock()

	var list []T
	if err := s.cache.Get(ctx, key, &list); err != nil {
		if !cache.IsCacheMiss(err) {
			_ = s.cache.Delete(ctx, key)
		}
		return
	}

	list = mutate(list)
	if err := s.cache.Set(ctx, key, list, s.opts.CollectionTTL); err != nil {
		log.Printf("[RecordStore] Cache update failed for %s: %v", key, err)
		_ = s.cache.Delete(ctx, key)
	}
}

// applyRecord 用写操作返回的记录替换或追加，然后重新排序
func (s *Service) applyRecord(ctx context.Context, owner string, watch models.Watch) {
	watch.ImageURL = ""
	updateCached(ctx, s, cache.Records.Build(owner), func(list []models.Watch) []models.Watch {
		replaced := false
		for i := range list {
			if list[i].ID == watch.ID {
				list[i] = watch
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, watch)
		}
		sortRecords(list)
		return list
	})
}

func (s *Service) removeRecord(ctx context.Context, owner, id string) {
	updateCached(ctx, s, cache.Records.Build(owner), func(list []models.Watch) []models.Watch {
		out := list[:0]
		for _, w := range list {
			if w.ID != id {
				out = append(out, w)
			}
		}
		return out
	})
}

func (s *Service) applyBrand(ctx context.Context, scope string, brand models.Brand) {
	updateCached(ctx, s, cache.BrandScopeKey(scope), func(list []models.Brand) []models.Brand {
		replaced := false
		for i := range list {
			if list[i].ID == brand.ID {
				list[i] = brand
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, brand)
		}
		sortBrands(list)
		return list
	})
}
