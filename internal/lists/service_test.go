package lists

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlbridge/internal/decode"
	"ftlbridge/internal/log"
	"ftlbridge/internal/metrics"
	"ftlbridge/internal/network"
	"ftlbridge/internal/protocol"
	"ftlbridge/internal/testutil/fakeengine"
)

func newTestService(t *testing.T, engine *fakeengine.Engine) *Service {
	t.Helper()

	upstream, err := network.NewEngineClient("tcp", engine.Addr(), metrics.NewNoopConnectionLifecycleHook(), network.EngineClientOpts{
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { upstream.Close() })

	return NewService(protocol.NewClient(upstream, log.NewNoopLogger(), protocol.ClientOpts{}), log.NewNoopLogger())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"allow", Allow},
		{"White", Allow},
		{"deny", Deny},
		{"blacklist", Deny},
		{"wildcard", Wildcard},
		{"wild", Wildcard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := ParseKind(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}

	_, err := ParseKind("grey")
	assert.ErrorIs(t, err, protocol.ErrValidation)
}

func TestListByKind(t *testing.T) {
	engine := fakeengine.Start(t)
	engine.Reply(">list (allow)", "example.com", "cdn.example 0")
	engine.Reply(">list (deny)", "ads.test 1")
	engine.Reply(">list (wildcard)", "*.tracker.io")

	service := newTestService(t, engine)
	ctx := context.Background()

	allow, err := service.List(ctx, Allow)
	require.NoError(t, err)
	assert.Equal(t, []decode.ListEntry{
		{Domain: "example.com", Enabled: true},
		{Domain: "cdn.example", Enabled: false},
	}, allow)

	deny, err := service.List(ctx, Deny)
	require.NoError(t, err)
	assert.Equal(t, []decode.ListEntry{{Domain: "ads.test", Enabled: true}}, deny)

	wildcard, err := service.List(ctx, Wildcard)
	require.NoError(t, err)
	assert.Equal(t, []decode.ListEntry{{Domain: "*.tracker.io", Enabled: true}}, wildcard)
}

func TestListRejectsWildcardOutsideWildcardList(t *testing.T) {
	engine := fakeengine.Start(t)
	engine.Reply(">list (deny)", "*.tracker.io")

	_, err := newTestService(t, engine).List(context.Background(), Deny)
	assert.ErrorIs(t, err, protocol.ErrParse)
}

func TestListUnknownKind(t *testing.T) {
	engine := fakeengine.Start(t)

	_, err := newTestService(t, engine).List(context.Background(), Kind(42))
	assert.ErrorIs(t, err, protocol.ErrValidation)
	assert.Empty(t, engine.Commands())
}

func TestStatus(t *testing.T) {
	engine := fakeengine.Start(t)
	engine.Reply(">status", "status disabled", "blocking inactive")

	status, err := newTestService(t, engine).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, decode.EngineStatus{Enabled: false, Blocking: false}, status)
}

func TestStatusEngineError(t *testing.T) {
	engine := fakeengine.Start(t)
	engine.Reply(">status", "ERR status unavailable")

	_, err := newTestService(t, engine).Status(context.Background())
	assert.ErrorIs(t, err, protocol.ErrEngine)
}
