// Package worker 提供固定并发的任务池，用于分页拉取上游列表。
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"alphaSeeker/internal/trace"
)

const defaultConcurrency = 4

// Config 控制并发数。
type Config struct {
	Concurrency int
}

func DefaultConfig() Config {
	return Config{Concurrency: defaultConcurrency}
}

// Pool 对每个 job 调用 fn，同时在途不超过 Concurrency 个；任一失败即取消其余。
type Pool[J any] struct {
	cfg Config
}

func NewPool[J any](cfg Config) *Pool[J] {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Pool[J]{cfg: cfg}
}

func (p *Pool[J]) Run(ctx context.Context, jobs []J, fn func(context.Context, J) error) error {
	if len(jobs) == 0 {
		return nil
	}
	trace.Log(ctx, "worker: Pool.Run start jobs=%d concurrency=%d", len(jobs), p.cfg.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, j)
		})
	}
	err := g.Wait()
	trace.Log(ctx, "worker: Pool.Run done err=%v", err)
	return err
}
