package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesExplicitValues(t *testing.T) {
	doc := []byte(`
election-timeout.min: 100ms
election-timeout.max: 200ms
heartbeat-interval: 20ms
default-append-entries-batch-size: 10
publish-testing-events: true
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, cfg.ElectionTimeoutMin)
	require.Equal(t, 200*time.Millisecond, cfg.ElectionTimeoutMax)
	require.Equal(t, 20*time.Millisecond, cfg.HeartbeatInterval)
	require.Equal(t, 10, cfg.AppendEntriesBatch)
	require.True(t, cfg.PublishTestEvents)
}

func TestParseFallsBackToDefaultsForUnsetFields(t *testing.T) {
	cfg, err := Parse([]byte(`default-append-entries-batch-size: 3`))
	require.NoError(t, err)
	require.Equal(t, 150*time.Millisecond, cfg.ElectionTimeoutMin)
	require.Equal(t, 300*time.Millisecond, cfg.ElectionTimeoutMax)
	require.Equal(t, 3, cfg.AppendEntriesBatch)
}

func TestParseRejectsTimerMisconfiguration(t *testing.T) {
	doc := []byte(`
election-timeout.min: 10ms
election-timeout.max: 20ms
heartbeat-interval: 15ms
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsMalformedYaml(t *testing.T) {
	_, err := Parse([]byte("not: [valid: yaml"))
	require.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/path/to/raft.yaml")
	require.Error(t, err)
}
