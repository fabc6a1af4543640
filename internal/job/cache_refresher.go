package job

import (
	"context"
	"log"
	"time"

	"chitpay/internal/config"
	"chitpay/internal/service"
)

// CacheRefresher 快照刷新任务
// 定期把缴款记录全量拉下来覆盖 Redis 快照，保证主库短暂不可用时
// 降级读拿到的数据不会太旧。刷新失败只记日志，下个周期重试。
type CacheRefresher struct {
	paymentService *service.PaymentService
	interval       time.Duration
	stopCh         chan struct{}
}

func NewCacheRefresher(paymentService *service.PaymentService, cfg *config.Config) *CacheRefresher {
	return &CacheRefresher{
		paymentService: paymentService,
		interval:       cfg.Business.CacheRefreshInterval(),
		stopCh:         make(chan struct{}),
	}
}

func (j *CacheRefresher) Start(ctx context.Context) {
	log.Println("[CacheRefresher] 快照刷新任务启动")

	// 启动时先刷一次，让降级读尽早可用
	j.refresh(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[CacheRefresher] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[CacheRefresher] 任务停止")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *CacheRefresher) Stop() {
	close(j.stopCh)
}

func (j *CacheRefresher) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := j.paymentService.RefreshSnapshot(refreshCtx); err != nil {
		log.Printf("[CacheRefresher] 刷新快照失败: %v", err)
	}
}
