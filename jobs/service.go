package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SeanMkhabela/stackgen-backend/cache"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// Service 任务队列服务。
// 借用 NATS 连接器与缓存门面，不负责二者的生命周期。
type Service struct {
	cfg    *Config
	queue  queue
	cache  cache.Cache
	logger clog.Logger

	enqueued  metrics.Counter
	processed metrics.Counter
}

// errCacheNil 缓存门面为空
var errCacheNil = xerrors.New("jobs: cache is nil")

// NewService 创建任务服务
func NewService(cfg *Config, conn connector.NATSConnector, c cache.Cache, opts ...Option) (*Service, error) {
	if conn == nil {
		return nil, xerrors.New("jobs: nats connector is nil")
	}
	if c == nil {
		return nil, errCacheNil
	}
	return newService(cfg, newNATSQueue(conn), c, opts...)
}

// newService 用任意队列实现创建服务（内部函数，测试替换传输层）
func newService(cfg *Config, q queue, c cache.Cache, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	s := &Service{
		cfg:    cfg,
		queue:  q,
		cache:  c,
		logger: opt.logger,
	}

	var err error
	if s.enqueued, err = opt.meter.Counter("jobs_enqueued_total", "Total jobs enqueued"); err != nil {
		s.logger.Warn("failed to create enqueued counter", clog.Error(err))
	}
	if s.processed, err = opt.meter.Counter("jobs_processed_total", "Total jobs processed"); err != nil {
		s.logger.Warn("failed to create processed counter", clog.Error(err))
	}

	return s, nil
}

// Enqueue 发布新任务并写入 pending 状态
func (s *Service) Enqueue(ctx context.Context, stackID, owner string) (*Job, error) {
	job := &Job{
		ID:         uuid.NewString(),
		StackID:    stackID,
		Owner:      owner,
		Status:     StatusPending,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := job.encode()
	if err != nil {
		return nil, xerrors.Wrap(err, "jobs: encode failed")
	}

	// pending 先落缓存再发布：投递是异步的，worker 可能在发布返回前
	// 就已把状态推进到 running
	s.putStatus(ctx, job)

	if err := s.queue.publish(s.cfg.Subject, data); err != nil {
		s.cache.Delete(ctx, statusKey(job.ID))
		return nil, err
	}
	s.logger.Info("job enqueued",
		clog.String("job_id", job.ID),
		clog.String("stack", job.StackID))
	if s.enqueued != nil {
		s.enqueued.Inc(ctx)
	}

	return job, nil
}

// Status 从缓存读取任务状态。
// 缓存不可用或记录过期时返回 false，调用方视为未知任务。
func (s *Service) Status(ctx context.Context, id string) (*Job, bool) {
	v, ok := s.cache.Get(ctx, statusKey(id))
	if !ok || v.Kind != cache.KindBinary {
		return nil, false
	}

	job, err := decodeJob(v.Bytes())
	if err != nil {
		s.logger.Warn("corrupt job record in cache",
			clog.String("job_id", id), clog.Error(err))
		return nil, false
	}
	return job, true
}

// StartWorker 启动队列组 worker，返回停止函数。
// worker 模拟长耗时生成：pending→running→done 依次写入缓存。
func (s *Service) StartWorker() (func() error, error) {
	sub, err := s.queue.queueSubscribe(s.cfg.Subject, s.cfg.QueueGroup, s.process)
	if err != nil {
		return nil, err
	}

	s.logger.Info("job worker started",
		clog.String("subject", s.cfg.Subject),
		clog.String("queue_group", s.cfg.QueueGroup))

	return sub.Unsubscribe, nil
}

// process 处理一条任务记录
func (s *Service) process(data []byte) {
	ctx := context.Background()

	job, err := decodeJob(data)
	if err != nil {
		s.logger.Error("discarding undecodable job", clog.Error(err))
		return
	}

	job.Status = StatusRunning
	s.putStatus(ctx, job)

	// 生成是模拟的，真正的产物走同步下载接口
	time.Sleep(s.cfg.WorkDelay)

	job.Status = StatusDone
	s.putStatus(ctx, job)

	s.logger.Info("job processed",
		clog.String("job_id", job.ID),
		clog.String("stack", job.StackID))
	if s.processed != nil {
		s.processed.Inc(ctx)
	}
}

// putStatus 把状态写入缓存，失败只记日志
func (s *Service) putStatus(ctx context.Context, job *Job) {
	data, err := job.encode()
	if err != nil {
		s.logger.Warn("failed to encode job status", clog.Error(err))
		return
	}
	if !s.cache.Set(ctx, statusKey(job.ID), cache.Binary(data), s.cfg.StatusTTL) {
		s.logger.Warn("failed to cache job status",
			clog.String("job_id", job.ID),
			clog.String("status", string(job.Status)))
	}
}
