package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// BackgroundWriter 是显式的 best-effort 写入队列：响应路径只负责入队，
// 真正的缓存写入由单个后台 goroutine 完成，失败只记日志，绝不反馈给调用方。
// 同一标识的并发写入按到达顺序 last-write-wins。
type BackgroundWriter struct {
	jobs       chan writeJob
	logger     *logrus.Logger
	maxEntries int

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

type writeJob struct {
	gen  Generation
	id   Identity
	snap *Snapshot

	// flush 非空时该任务只用于排空确认。
	flush chan struct{}
}

// NewBackgroundWriter 启动后台写入循环。queueSize 是入队缓冲上限，队列满时
// 新写入直接丢弃；maxEntries 限制单个缓存代的条目数，0 表示不设限。
func NewBackgroundWriter(logger *logrus.Logger, queueSize, maxEntries int) *BackgroundWriter {
	if queueSize <= 0 {
		queueSize = 64
	}

	w := &BackgroundWriter{
		jobs:       make(chan writeJob, queueSize),
		logger:     logger,
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue 将一次缓存写入排入后台队列，永不阻塞响应路径。
func (w *BackgroundWriter) Enqueue(gen Generation, id Identity, snap *Snapshot) {
	if gen == nil || snap == nil || w.closed.Load() {
		return
	}

	select {
	case w.jobs <- writeJob{gen: gen, id: id, snap: snap}:
	default:
		w.logger.WithFields(logrus.Fields{
			"action": "cache_write_dropped",
			"key":    id.Key(),
		}).Warn("写入队列已满，放弃本次缓存写入")
	}
}

// Flush 阻塞到此前排入的任务全部落盘，供测试和诊断确认用。
func (w *BackgroundWriter) Flush() {
	if w.closed.Load() {
		return
	}
	flushed := make(chan struct{})
	w.jobs <- writeJob{flush: flushed}
	<-flushed
}

// Close 停止接收新任务，排空队列后返回。主要供测试与优雅退出使用。
func (w *BackgroundWriter) Close() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.jobs)
	})
	<-w.done
}

func (w *BackgroundWriter) run() {
	defer close(w.done)
	for job := range w.jobs {
		if job.flush != nil {
			close(job.flush)
			continue
		}
		w.write(job)
	}
}

func (w *BackgroundWriter) write(job writeJob) {
	ctx := context.Background()

	if w.maxEntries > 0 {
		count, err := job.gen.Len(ctx)
		if err != nil {
			w.logger.WithError(err).
				WithField("action", "cache_len_failed").
				Warn("读取缓存代条目数失败")
			return
		}
		if count >= w.maxEntries {
			w.logger.WithFields(logrus.Fields{
				"action":      "cache_write_skipped",
				"key":         job.id.Key(),
				"max_entries": w.maxEntries,
			}).Warn("运行时缓存已达容量上限，跳过写入")
			return
		}
	}

	if err := job.gen.Put(ctx, job.id, job.snap); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"action": "cache_write_failed",
			"key":    job.id.Key(),
		}).Warn("后台缓存写入失败")
	}
}
