package services_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
)

func TestCooldownGate(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("first event fires", func(t *testing.T) {
		gate := services.NewCooldownGate(5 * time.Minute)

		assert.True(t, gate.TryFire(t0))
		assert.Equal(t, t0, gate.LastFiredAt())
	})

	t.Run("events inside the window are swallowed", func(t *testing.T) {
		gate := services.NewCooldownGate(5 * time.Minute)
		gate.TryFire(t0)

		assert.False(t, gate.TryFire(t0.Add(time.Second)))
		assert.False(t, gate.TryFire(t0.Add(4*time.Minute+59*time.Second)))
		assert.Equal(t, t0, gate.LastFiredAt())
	})

	t.Run("fires again once the window elapsed", func(t *testing.T) {
		gate := services.NewCooldownGate(5 * time.Minute)
		gate.TryFire(t0)

		assert.True(t, gate.TryFire(t0.Add(5*time.Minute)))
		assert.True(t, gate.TryFire(t0.Add(11*time.Minute)))
	})

	t.Run("reset reopens the gate", func(t *testing.T) {
		gate := services.NewCooldownGate(5 * time.Minute)
		gate.TryFire(t0)

		gate.Reset()

		assert.True(t, gate.LastFiredAt().IsZero())
		assert.True(t, gate.TryFire(t0.Add(time.Second)))
	})

	t.Run("non-positive cooldown falls back to default", func(t *testing.T) {
		gate := services.NewCooldownGate(0)

		assert.Equal(t, services.DefaultNotificationCooldown, gate.Cooldown())
	})

	t.Run("concurrent events fire once", func(t *testing.T) {
		gate := services.NewCooldownGate(5 * time.Minute)
		var fired atomic.Int32
		var wg sync.WaitGroup

		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if gate.TryFire(t0) {
					fired.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), fired.Load())
	})
}
