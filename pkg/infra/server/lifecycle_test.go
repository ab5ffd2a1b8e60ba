package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRunnable struct {
	name     string
	startErr error
	mu       *sync.Mutex
	events   *[]string
}

func (f *fakeRunnable) Name() string { return f.name }

func (f *fakeRunnable) Start(context.Context) error {
	f.record("start " + f.name)
	return f.startErr
}

func (f *fakeRunnable) Stop(context.Context) error {
	f.record("stop " + f.name)
	return nil
}

func (f *fakeRunnable) record(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.events = append(*f.events, e)
}

func TestRun_StopsInReverseOrder(t *testing.T) {
	var mu sync.Mutex
	var events []string
	a := &fakeRunnable{name: "a", mu: &mu, events: &events}
	b := &fakeRunnable{name: "b", mu: &mu, events: &events}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	assert.NoError(t, Run(ctx, time.Second, a, b))
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestRun_StartFailure(t *testing.T) {
	var mu sync.Mutex
	var events []string
	boom := errors.New("boom")
	a := &fakeRunnable{name: "a", mu: &mu, events: &events}
	b := &fakeRunnable{name: "b", startErr: boom, mu: &mu, events: &events}

	err := Run(context.Background(), time.Second, a, b)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
}
