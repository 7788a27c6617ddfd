package remote

import (
	"context"
	"net/textproto"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) retryConfig {
	return retryConfig{
		attempts: attempts,
		initial:  time.Millisecond,
		max:      5 * time.Millisecond,
		mult:     2.0,
	}
}

func TestWithRetry_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry(3), "dial", func() error {
		calls++
		if calls < 3 {
			return &textproto.Error{Code: 421, Msg: "service not available"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentErrorStops(t *testing.T) {
	calls := 0
	permanent := &textproto.Error{Code: 550, Msg: "no such file"}
	err := withRetry(context.Background(), fastRetry(5), "retrieve", func() error {
		calls++
		return permanent
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry(3), "dial", func() error {
		calls++
		return &textproto.Error{Code: 425, Msg: "cannot open data connection"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, fastRetry(5), "dial", func() error {
		calls++
		return &textproto.Error{Code: 421, Msg: "busy"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ftp 4xx reply", &textproto.Error{Code: 421, Msg: "busy"}, true},
		{"ftp 5xx reply", &textproto.Error{Code: 530, Msg: "login incorrect"}, false},
		{"wrapped ftp reply", eris.Wrap(&textproto.Error{Code: 450, Msg: "unavailable"}, "retrieve"), true},
		{"connection reset text", eris.New("read tcp: connection reset by peer"), true},
		{"plain failure", eris.New("bad map header"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
