package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := Errorf(KindParse, "decode", "malformed count: line=%d", 3)

	assert.ErrorIs(t, err, ErrParse)
	assert.NotErrorIs(t, err, ErrConnection)
	assert.Equal(t, "decode: malformed count: line=3", err.Error())

	wrapped := fmt.Errorf("stats: top domains: %w", err)
	assert.ErrorIs(t, wrapped, ErrParse)
	assert.Equal(t, KindParse, KindOf(wrapped))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(io.EOF))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindRetryable(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
	}{
		{KindConnection, true},
		{KindTimeout, true},
		{KindParse, false},
		{KindValidation, false},
		{KindEngine, false},
		{KindUnknown, false},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.retryable, tc.kind.Retryable())
		})
	}
}

func TestIOErrorClassification(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(ioError("op", "read", os.ErrDeadlineExceeded)))
	assert.Equal(t, KindConnection, KindOf(ioError("op", "read", errors.New("connection reset"))))
}

func TestCheckoutErrorClassification(t *testing.T) {
	waited := fmt.Errorf("pool: gave up waiting for a connection: err=%w", context.DeadlineExceeded)

	assert.Equal(t, KindTimeout, KindOf(checkoutError("op", waited)))
	assert.Equal(t, KindConnection, KindOf(checkoutError("op", errors.New("connection refused"))))
}
