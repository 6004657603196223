package async

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
}

func TestRunDoesNotBlockWithoutReceiver(t *testing.T) {
	done := make(chan struct{})
	_ = Run(func() error {
		defer close(done)
		return errors.New("ignored")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "goroutine blocked on send")
	}
}
