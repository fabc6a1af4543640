package cache

import (
	"context"
	"encoding/json"
	"errors"

	"chitpay/internal/model"

	"github.com/go-redis/redis/v8"
)

// 快照整体存成一个 key，整存整取，永远不做增量修改
const paymentSnapshotKey = "chitpay:payments:snapshot"

var ErrSnapshotEmpty = errors.New("缴款快照为空")

// PaymentSnapshot 缴款记录的只读镜像
// MySQL 不可用时查询降级到这里，用同一套过滤语义在内存里筛。
// 快照只在主库读取成功后整体覆盖，绝不回写主库，
// 并发读最多读到上一版快照，不存在部分更新。
type PaymentSnapshot struct {
	client *redis.Client
}

func NewPaymentSnapshot(client *redis.Client) *PaymentSnapshot {
	return &PaymentSnapshot{client: client}
}

// Replace 用最新的全量记录覆盖快照
func (s *PaymentSnapshot) Replace(ctx context.Context, payments []*model.Payment) error {
	data, err := json.Marshal(payments)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, paymentSnapshotKey, data, 0).Err()
}

// Load 读出上一次成功缓存的全量记录
func (s *PaymentSnapshot) Load(ctx context.Context) ([]*model.Payment, error) {
	data, err := s.client.Get(ctx, paymentSnapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotEmpty
		}
		return nil, err
	}

	var payments []*model.Payment
	if err := json.Unmarshal(data, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
