package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("NEW_RELIC_APP_NAME", "")
	t.Setenv("AWS_REGION", "")

	cfg := LoadConfigFromEnv()
	require.Equal(t, "smpc-coordinator", cfg.NewRelicAppName)
	require.Equal(t, "eu-west-2", cfg.AWSRegion)
	require.Equal(t, "production", cfg.SentryEnvironment)
}

func TestManagerInitializeWithNoCredentialsIsANoOp(t *testing.T) {
	t.Setenv("DD_API_KEY", "")
	t.Setenv("NEW_RELIC_LICENSE_KEY", "")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("LOCALSTACK_ENDPOINT_URL", "")

	m := NewManager(LoadConfigFromEnv())
	require.NoError(t, m.Initialize())
	require.Nil(t, m.AWSSession())
	require.Nil(t, m.NewRelicApp())
	m.CaptureError(nil)
	m.Shutdown()
}
