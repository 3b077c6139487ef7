package resync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffRetryer(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		retryer := NewExponentialBackoffRetryer()

		delay, shouldRetry := retryer.NextDelay(0, nil)
		assert.True(t, shouldRetry)
		assert.GreaterOrEqual(t, delay, 350*time.Millisecond)
		assert.LessOrEqual(t, delay, 650*time.Millisecond)

		delay, shouldRetry = retryer.NextDelay(1, nil)
		assert.True(t, shouldRetry)
		assert.GreaterOrEqual(t, delay, 700*time.Millisecond)
		assert.LessOrEqual(t, delay, 1300*time.Millisecond)

		delay, shouldRetry = retryer.NextDelay(100, nil)
		assert.True(t, shouldRetry, "retries forever by default")
		assert.LessOrEqual(t, delay, 39*time.Second)
	})

	t.Run("without jitter", func(t *testing.T) {
		retryer := &ExponentialBackoffRetryer{
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     1 * time.Second,
			Multiplier:   2.0,
		}

		want := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			800 * time.Millisecond,
			1 * time.Second,
			1 * time.Second,
		}
		for attempt, expected := range want {
			delay, shouldRetry := retryer.NextDelay(attempt, nil)
			assert.True(t, shouldRetry)
			assert.Equal(t, expected, delay, "attempt %d", attempt)
		}
	})

	t.Run("with max retries", func(t *testing.T) {
		retryer := &ExponentialBackoffRetryer{
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			MaxRetries:   3,
		}

		for i := 0; i < 3; i++ {
			_, shouldRetry := retryer.NextDelay(i, errors.New("down"))
			assert.True(t, shouldRetry, "attempt %d should retry", i)
		}
		_, shouldRetry := retryer.NextDelay(3, errors.New("down"))
		assert.False(t, shouldRetry)
	})
}

func TestFixedDelayRetryer(t *testing.T) {
	retryer := NewFixedDelayRetryer(50*time.Millisecond, 2)

	for i := 0; i < 2; i++ {
		delay, shouldRetry := retryer.NextDelay(i, nil)
		assert.True(t, shouldRetry)
		assert.Equal(t, 50*time.Millisecond, delay)
	}
	_, shouldRetry := retryer.NextDelay(2, nil)
	assert.False(t, shouldRetry)

	retryer.Reset()
	_, shouldRetry = NewFixedDelayRetryer(time.Millisecond, 0).NextDelay(1000, nil)
	assert.True(t, shouldRetry)
}
