package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/utils"
	"golang.org/x/sync/errgroup"
)

// WatchSource 分页读取带图片的记录，并按条件清空 key
type WatchSource interface {
	ListWithImages(ctx context.Context, afterID string, limit int) ([]models.Watch, error)
	ClearImageKeyIfMatch(ctx context.Context, id, key string) (bool, error)
}

// ObjectChecker 检查对象是否存在
type ObjectChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// CacheInvalidator 清除用户缓存
type CacheInvalidator interface {
	Invalidate(ctx context.Context, owner string) error
}

// Report 一次扫描的结果
type Report struct {
	Scanned int
	Cleared int
	Failed  int
}

// OrphanScanner 孤儿图片引用扫描器
// 记录引用的对象已不存在时清空其 image_key
type OrphanScanner struct {
	watches     WatchSource
	objects     ObjectChecker
	cache       CacheInvalidator
	interval    time.Duration
	batchSize   int
	concurrency int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOrphanScanner 创建扫描器
func NewOrphanScanner(watches WatchSource, objects ObjectChecker, cache CacheInvalidator, interval time.Duration) *OrphanScanner {
	return &OrphanScanner{
		watches:     watches,
		objects:     objects,
		cache:       cache,
		interval:    interval,
		batchSize:   100,
		concurrency: 8,
		stopCh:      make(chan struct{}),
	}
}

// Start 启动扫描器，启动时立即执行一次
func (s *OrphanScanner) Start() {
	if s.interval <= 0 {
		log.Println("[OrphanScanner] Disabled (interval <= 0)")
		return
	}

	ticker := time.NewTicker(s.interval)
	utils.SafeGo("OrphanScanner", &s.wg, func() {
		defer ticker.Stop()

		s.scan()
		for {
			select {
			case <-ticker.C:
				s.scan()
			case <-s.stopCh:
				return
			}
		}
	})
	utils.LogIfDevf("[OrphanScanner] Started with interval %v", s.interval)
}

// Stop 停止扫描器并等待当前扫描结束
func (s *OrphanScanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *OrphanScanner) scan() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := s.RunOnce(ctx)
	if err != nil {
		log.Printf("[OrphanScanner] Scan failed: %v", err)
		return
	}
	if report.Cleared > 0 || report.Failed > 0 {
		log.Printf("[OrphanScanner] Scanned %d, cleared %d, failed %d", report.Scanned, report.Cleared, report.Failed)
	}
}

// RunOnce 扫描全部带图片的记录
func (s *OrphanScanner) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{}
	var mu sync.Mutex
	afterID := ""

	for {
		batch, err := s.watches.ListWithImages(ctx, afterID, s.batchSize)
		if err != nil {
			return report, err
		}
		if len(batch) == 0 {
			return report, nil
		}
		afterID = batch[len(batch)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i := range batch {
			w := batch[i]
			if !w.HasImage() {
				continue
			}
			g.Go(func() error {
				cleared, err := s.check(gctx, w)
				mu.Lock()
				defer mu.Unlock()
				report.Scanned++
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					report.Failed++
					utils.LogIfDevf("[OrphanScanner] Failed to check record %s: %v", w.ID, err)
					return nil
				}
				if cleared {
					report.Cleared++
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		if len(batch) < s.batchSize {
			return report, nil
		}
	}
}

// check 对象不存在时清空 key，只在 key 未被并发修改时生效
func (s *OrphanScanner) check(ctx context.Context, w models.Watch) (bool, error) {
	key := *w.ImageKey
	exists, err := s.objects.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	cleared, err := s.watches.ClearImageKeyIfMatch(ctx, w.ID, key)
	if err != nil || !cleared {
		return false, err
	}

	log.Printf("[OrphanScanner] Cleared missing image %s on record %s", key, w.ID)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, w.OwnerID); err != nil {
			log.Printf("[OrphanScanner] Failed to invalidate cache for owner %s: %v", w.OwnerID, err)
		}
	}
	return true, nil
}
