package util

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunInterval(t *testing.T) {
	var counter int32

	quit := RunInterval(10*time.Millisecond, func() {
		atomic.AddInt32(&counter, 1)
	})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&counter) >= 2
	}, time.Second, 5*time.Millisecond)

	close(quit)
}
