package metrics

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		name        string
		defaultTags map[string]string
		metric      string
		tags        map[string]string
		expected    string
	}{
		{
			name:     "no tags",
			metric:   "event.engine.error",
			expected: "event.engine.error",
		},
		{
			name:        "default tags only",
			defaultTags: map[string]string{"host": "pi"},
			metric:      "event.engine.error",
			expected:    "event.engine.error,host=pi",
		},
		{
			name:        "merged and sorted",
			defaultTags: map[string]string{"host": "pi"},
			metric:      "latency.engine.tx_rtt",
			tags:        map[string]string{"command": "top-domains", "addr": "127.0.0.1:4711"},
			expected:    "latency.engine.tx_rtt,addr=127.0.0.1%3A4711,command=top-domains,host=pi",
		},
		{
			name:     "per-call tag overrides default",
			metric:   "m",
			tags:     map[string]string{"host": "override"},
			expected: "m,host=override",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := &StatsdClient{defaultTags: test.defaultTags}
			assert.Equal(t, test.expected, client.formatMetric(test.metric, test.tags))
		})
	}
}

func TestAddrHelpers(t *testing.T) {
	tcp := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4711}
	unix := &net.UnixAddr{Name: "/run/pihole-ftl/ftl.sock", Net: "unix"}
	var nilTCP *net.TCPAddr

	assert.Equal(t, "127.0.0.1", nameFromAddr(tcp))
	assert.Equal(t, "tcp", transportFromAddr(tcp))
	assert.Equal(t, "/run/pihole-ftl/ftl.sock", nameFromAddr(unix))
	assert.Equal(t, "unix", transportFromAddr(unix))
	assert.Equal(t, "null", nameFromAddr(nil))
	assert.Equal(t, "null", nameFromAddr(nilTCP))
	assert.Equal(t, "null", transportFromAddr(nil))
}

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(engineErrors.WithLabelValues("timeout"))

	RecordHTTPRequest("GET", "/admin/api/stats/summary", 200, 12*time.Millisecond)
	RecordEngineError("timeout")

	assert.Equal(t, before+1, testutil.ToFloat64(engineErrors.WithLabelValues("timeout")))
}

func TestNoopHooksDoNotPanic(t *testing.T) {
	NewNoopConnectionLifecycleHook().EmitConnectionOpen(time.Millisecond, nil)
	NewNoopConnectionIOHook().EmitRetry(nil)
	NewNoopCommandHook().EmitError("stats", "parse")
}
