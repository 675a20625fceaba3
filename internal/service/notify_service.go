package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sang-Dang/MMMS-Backend/config"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
	"github.com/Sang-Dang/MMMS-Backend/pkg/redis"
)

// Notifier 工作流事件发射接口
//
// Emit 永不阻塞、永不返回错误：通知是尽力而为的旁路，
// 任何失败都不得影响触发它的工作流操作。
type Notifier interface {
	Emit(eventName string, targetRole string, payload map[string]interface{})
}

// NopNotifier 空实现（单元测试用）
type NopNotifier struct{}

// Emit 丢弃事件
func (NopNotifier) Emit(string, string, map[string]interface{}) {}

type notifyEvent struct {
	Name    string
	Role    string
	Payload map[string]interface{}
}

// NotifyService 通知 outbox 服务
//
// 事件先进内存队列，后台协程逐条落库（notifications 表）并发布到
// Redis 频道；发布失败只累加 attempts，由定时兜底扫描重发。
// 队列满时直接丢弃并记日志 —— outbox 行是真相，队列只是加速。
type NotifyService struct {
	cfg    *config.NotifyConfig
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger

	queue chan notifyEvent
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewNotifyService 创建通知服务
// rdb 可为 nil（未配置 Redis 时只落库不广播）
func NewNotifyService(
	cfg *config.NotifyConfig,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *NotifyService {
	return &NotifyService{
		cfg:    cfg,
		repo:   repo,
		rdb:    rdb,
		logger: logger,
		queue:  make(chan notifyEvent, cfg.QueueSize),
		stop:   make(chan struct{}),
	}
}

// Emit 发射工作流事件（非阻塞）
func (s *NotifyService) Emit(eventName string, targetRole string, payload map[string]interface{}) {
	select {
	case s.queue <- notifyEvent{Name: eventName, Role: targetRole, Payload: payload}:
	default:
		s.logger.Warn("通知队列已满，事件被丢弃",
			zap.String("event", eventName),
			zap.String("target_role", targetRole))
	}
}

// Start 启动后台投递协程
func (s *NotifyService) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop 停止投递协程，等待在途事件处理完毕
func (s *NotifyService) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *NotifyService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-s.queue:
			s.deliver(e)
		case <-ticker.C:
			s.drainOutbox()
		case <-s.stop:
			// 排空队列中剩余事件后退出
			for {
				select {
				case e := <-s.queue:
					s.deliver(e)
				default:
					return
				}
			}
		}
	}
}

// deliver 落库一条通知并尝试发布
func (s *NotifyService) deliver(e notifyEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(e.Payload)
	if err != nil {
		s.logger.Error("通知 payload 序列化失败", zap.String("event", e.Name), zap.Error(err))
		return
	}

	row := &model.Notification{
		EventName:  e.Name,
		TargetRole: e.Role,
		Payload:    string(body),
	}
	if err := s.repo.Notification.Create(ctx, row); err != nil {
		s.logger.Error("通知落库失败", zap.String("event", e.Name), zap.Error(err))
		return
	}

	if err := s.publish(ctx, row); err != nil {
		s.logger.Warn("通知发布失败，等待兜底重发",
			zap.String("event", e.Name),
			zap.String("notification_id", row.NotificationID),
			zap.Error(err))
		if err := s.repo.Notification.IncrementAttempts(ctx, row.NotificationID); err != nil {
			s.logger.Error("累加通知重试次数失败", zap.Error(err))
		}
		return
	}

	if err := s.repo.Notification.MarkSent(ctx, row.NotificationID); err != nil {
		s.logger.Error("标记通知已发送失败", zap.Error(err))
	}
}

// drainOutbox 兜底扫描：重发 outbox 中所有未发送的通知
func (s *NotifyService) drainOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rows, err := s.repo.Notification.ListUnsent(ctx, 50)
	if err != nil {
		s.logger.Error("扫描未发送通知失败", zap.Error(err))
		return
	}

	for i := range rows {
		row := &rows[i]
		if err := s.publish(ctx, row); err != nil {
			if err := s.repo.Notification.IncrementAttempts(ctx, row.NotificationID); err != nil {
				s.logger.Error("累加通知重试次数失败", zap.Error(err))
			}
			continue
		}
		if err := s.repo.Notification.MarkSent(ctx, row.NotificationID); err != nil {
			s.logger.Error("标记通知已发送失败", zap.Error(err))
		}
	}
}

// publish 将通知发布到 Redis 频道；未配置 Redis 时视为发布成功
func (s *NotifyService) publish(ctx context.Context, row *model.Notification) error {
	if s.rdb == nil {
		return nil
	}

	msg, err := json.Marshal(map[string]interface{}{
		"id":          row.NotificationID,
		"event":       row.EventName,
		"target_role": row.TargetRole,
		"payload":     json.RawMessage(row.Payload),
	})
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.cfg.Channel, msg)
}
