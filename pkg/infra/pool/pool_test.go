package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("index", IndexPoolConfig(4))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "index" {
		t.Errorf("池名称不匹配: 期望 index, 实际 %s", p.Name())
	}
	if p.Cap() != 4 {
		t.Errorf("池容量不匹配: 期望 4, 实际 %d", p.Cap())
	}
}

func TestNewPool_InvalidConfig(t *testing.T) {
	if _, err := NewPool("bad", &Config{}); !errors.Is(err, ErrInvalidPoolConfig) {
		t.Errorf("期望 ErrInvalidPoolConfig, 实际 %v", err)
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", IndexPoolConfig(3))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}); err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}
	wg.Wait()

	if counter.Load() != 50 {
		t.Errorf("任务执行数不匹配: 期望 50, 实际 %d", counter.Load())
	}
	if s := p.Stats(); s.Submitted != 50 {
		t.Errorf("提交数不匹配: 期望 50, 实际 %d", s.Submitted)
	}
}

func TestPoolSubmitWithContext_Cancelled(t *testing.T) {
	p, err := NewPool("test", IndexPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.SubmitWithContext(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled, 实际 %v", err)
	}
}

func TestPoolSubmit_AfterRelease(t *testing.T) {
	p, err := NewPool("test", BackgroundPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	p.Release()

	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际 %v", err)
	}
}

func TestPoolPanicRecovered(t *testing.T) {
	done := make(chan struct{})
	cfg := IndexPoolConfig(1)
	cfg.PanicHandler = func(interface{}) { close(done) }

	p, err := NewPool("test", cfg)
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	_ = p.Submit(func() { panic("boom") })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panic 处理函数未被调用")
	}
	if p.Stats().Panics != 1 {
		t.Errorf("panic 计数不匹配: 期望 1, 实际 %d", p.Stats().Panics)
	}
}

func TestManager(t *testing.T) {
	m := NewManager()

	if _, err := m.Register(IndexPool, IndexPoolConfig(2)); err != nil {
		t.Fatalf("注册池失败: %v", err)
	}
	if _, err := m.Register(IndexPool, IndexPoolConfig(2)); !errors.Is(err, ErrPoolAlreadyExists) {
		t.Errorf("期望 ErrPoolAlreadyExists, 实际 %v", err)
	}
	if _, err := m.Get(BackgroundPool); !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("期望 ErrPoolNotFound, 实际 %v", err)
	}
	if got := len(m.Stats()); got != 1 {
		t.Errorf("池数量不匹配: 期望 1, 实际 %d", got)
	}

	if err := m.Close(); err != nil {
		t.Errorf("关闭管理器失败: %v", err)
	}
	if _, err := m.Get(IndexPool); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际 %v", err)
	}
}
