package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorBinding(t *testing.T) {
	ctx := context.Background()
	_, ok := CurrentActor(ctx)
	assert.False(t, ok)

	u := &User{Username: "admin"}
	bound := WithActor(ctx, u)
	got, ok := CurrentActor(bound)
	assert.True(t, ok)
	assert.Same(t, u, got)

	_, ok = CurrentActor(ClearActor(bound))
	assert.False(t, ok)
}

func TestActorIsolatedAcrossGoroutines(t *testing.T) {
	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", i)
			ctx := WithActor(context.Background(), &User{Username: name})
			for j := 0; j < 100; j++ {
				runtime.Gosched()
				u, ok := CurrentActor(ctx)
				if !ok || u.Username != name {
					errs <- fmt.Errorf("goroutine %d saw %v", i, u)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
