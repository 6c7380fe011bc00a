package monitor

import (
	"context"
	"testing"

	"github.com/solarsight/solarsight/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Run("LazyCreate", func(t *testing.T) {
		var created int
		m := NewMap(func() Platform {
			created++
			return NewMockPlatform()
		})

		p := m.Account("acct-1")
		require.NotNil(t, p)
		assert.Same(t, p, m.Account("acct-1"), "same account reuses the platform")
		assert.Equal(t, 1, created)

		m.Account("acct-2")
		assert.Equal(t, 2, created)
	})

	t.Run("SetPlatform", func(t *testing.T) {
		m := NewMap(nil)
		mock := NewMockPlatform()
		m.SetPlatform(types.AccountIDNone, mock)

		p := m.Account(types.AccountIDNone)
		require.Same(t, Platform(mock), p)

		p.Acquire(context.Background(), types.Credentials{})
		assert.Equal(t, 1, mock.Calls())
	})
}
