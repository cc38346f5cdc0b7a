//go:build unix

package mcpscan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shRunner(script string, timeout time.Duration) *CommandRunner {
	return &CommandRunner{name: "sh", argv: []string{"sh", "-c", script, "mcp-scan"}, timeout: timeout}
}

func TestCommandRunner_Scan(t *testing.T) {
	out, err := shRunner(`echo "{\"$1\": {}}"`, time.Second).Scan(context.Background(), "skills/a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"skills/a": {}}`, string(out))
}

func TestCommandRunner_NonZeroExitWithReport(t *testing.T) {
	out, err := shRunner(`echo '{}'; exit 1`, time.Second).Scan(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(out))
}

func TestCommandRunner_Failure(t *testing.T) {
	_, err := shRunner(`echo 'package not found' >&2; exit 3`, time.Second).Scan(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp-scan failed: package not found")
}

func TestCommandRunner_Timeout(t *testing.T) {
	_, err := shRunner(`sleep 5`, 100*time.Millisecond).Scan(context.Background(), "x")
	assert.EqualError(t, err, "scan timed out after 100ms")
}
