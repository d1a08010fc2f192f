// Package observability wires the platform's error-capture and APM
// integrations, adapted from the teacher's orchestrator observability
// manager: Sentry for error capture, Datadog and New Relic for tracing, and
// an optional AWS (LocalStack-compatible) session backing pkg/zkp's
// verification-key object store.
package observability

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ddtrace "github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/getsentry/sentry-go"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds every observability integration's tunables, sourced from
// environment variables (unlike internal/config, which reads a JSON file).
type Config struct {
	DatadogAPIKey string
	DatadogSite   string

	NewRelicLicenseKey string
	NewRelicAppName    string

	SentryDSN            string
	SentrySendDefaultPII bool
	SentryEnvironment    string

	LocalStackEndpointURL string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSRegion             string
}

// LoadConfigFromEnv reads every integration's configuration from its usual
// environment variable, defaulting service name/region/environment the same
// way the teacher's orchestrator does.
func LoadConfigFromEnv() *Config {
	return &Config{
		DatadogAPIKey:         os.Getenv("DD_API_KEY"),
		DatadogSite:           os.Getenv("DD_SITE"),
		NewRelicLicenseKey:    os.Getenv("NEW_RELIC_LICENSE_KEY"),
		NewRelicAppName:       getEnvOrDefault("NEW_RELIC_APP_NAME", "smpc-coordinator"),
		SentryDSN:             os.Getenv("SENTRY_DSN"),
		SentrySendDefaultPII:  getEnvOrDefault("SENTRY_SEND_DEFAULT_PII", "false") == "true",
		SentryEnvironment:     getEnvOrDefault("SENTRY_ENVIRONMENT", "production"),
		LocalStackEndpointURL: os.Getenv("LOCALSTACK_ENDPOINT_URL"),
		AWSAccessKeyID:        os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:             getEnvOrDefault("AWS_REGION", "eu-west-2"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Manager owns every observability integration's lifecycle.
type Manager struct {
	config        *Config
	newRelicApp   *newrelic.Application
	awsSession    *session.Session
	datadogActive bool
	sentryActive  bool
}

// NewManager builds an uninitialized observability manager over config.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Initialize starts every integration whose credentials are configured,
// logging a warning (not failing) for any that doesn't come up — the
// platform must run correctly with zero observability configured.
func (m *Manager) Initialize() error {
	log.Println("🔭 [OBSERVABILITY] Initializing observability tools...")

	if m.config.DatadogAPIKey != "" {
		if err := m.initializeDatadog(); err != nil {
			log.Printf("⚠️  [OBSERVABILITY] Failed to initialize Datadog: %v", err)
		} else {
			m.datadogActive = true
			log.Println("✅ [OBSERVABILITY] Datadog tracing initialized")
		}
	}

	if m.config.NewRelicLicenseKey != "" {
		if err := m.initializeNewRelic(); err != nil {
			log.Printf("⚠️  [OBSERVABILITY] Failed to initialize New Relic: %v", err)
		} else {
			log.Println("✅ [OBSERVABILITY] New Relic agent initialized")
		}
	}

	if m.config.SentryDSN != "" {
		if err := m.initializeSentry(); err != nil {
			log.Printf("⚠️  [OBSERVABILITY] Failed to initialize Sentry: %v", err)
		} else {
			m.sentryActive = true
			log.Println("✅ [OBSERVABILITY] Sentry SDK initialized")
		}
	}

	if m.config.LocalStackEndpointURL != "" {
		if err := m.initializeAWS(); err != nil {
			log.Printf("⚠️  [OBSERVABILITY] Failed to initialize AWS/LocalStack: %v", err)
		} else {
			log.Println("✅ [OBSERVABILITY] AWS/LocalStack session initialized")
		}
	}

	return nil
}

func (m *Manager) initializeDatadog() error {
	if m.config.DatadogAPIKey == "" {
		return fmt.Errorf("datadog API key not configured")
	}
	ddtrace.Start(
		ddtrace.WithEnv(getEnvOrDefault("DD_ENV", "production")),
		ddtrace.WithService(getEnvOrDefault("DD_SERVICE", "smpc-coordinator")),
		ddtrace.WithServiceVersion(getEnvOrDefault("DD_VERSION", "0.1.0")),
		ddtrace.WithAgentAddr(getEnvOrDefault("DD_AGENT_HOST", "localhost:8126")),
	)
	return nil
}

func (m *Manager) initializeNewRelic() error {
	if m.config.NewRelicLicenseKey == "" {
		return fmt.Errorf("new relic license key not configured")
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(m.config.NewRelicAppName),
		newrelic.ConfigLicense(m.config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return err
	}
	m.newRelicApp = app
	return nil
}

func (m *Manager) initializeSentry() error {
	if m.config.SentryDSN == "" {
		return fmt.Errorf("sentry DSN not configured")
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              m.config.SentryDSN,
		Environment:      m.config.SentryEnvironment,
		TracesSampleRate: 1.0,
		SendDefaultPII:   m.config.SentrySendDefaultPII,
	})
}

func (m *Manager) initializeAWS() error {
	if m.config.LocalStackEndpointURL == "" {
		return fmt.Errorf("localstack endpoint not configured")
	}
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(m.config.AWSRegion),
		Endpoint:         aws.String(m.config.LocalStackEndpointURL),
		Credentials:      credentials.NewStaticCredentials(m.config.AWSAccessKeyID, m.config.AWSSecretAccessKey, ""),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return err
	}
	m.awsSession = sess
	return nil
}

// AWSSession returns the (possibly nil) AWS/LocalStack session, the
// backing store pkg/zkp's S3 verification-key store needs.
func (m *Manager) AWSSession() *session.Session {
	return m.awsSession
}

// NewRelicApp returns the (possibly nil) New Relic application instance.
func (m *Manager) NewRelicApp() *newrelic.Application {
	return m.newRelicApp
}

// CaptureError reports err to Sentry, a no-op if Sentry isn't active.
func (m *Manager) CaptureError(err error) {
	if m.sentryActive && err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureMessage reports message to Sentry, a no-op if Sentry isn't active.
func (m *Manager) CaptureMessage(message string) {
	if m.sentryActive {
		sentry.CaptureMessage(message)
	}
}

// StartDatadogSpan starts a Datadog span for operationName if Datadog is
// active, otherwise returns a nil span and ctx unchanged.
func (m *Manager) StartDatadogSpan(ctx context.Context, operationName string) (ddtrace.Span, context.Context) {
	if m.datadogActive {
		return ddtrace.StartSpanFromContext(ctx, operationName)
	}
	return nil, ctx
}

// Shutdown flushes and stops every active integration.
func (m *Manager) Shutdown() {
	log.Println("🔭 [OBSERVABILITY] Shutting down observability tools...")
	if m.datadogActive {
		ddtrace.Stop()
	}
	if m.sentryActive {
		sentry.Flush(2 * time.Second)
	}
	if m.newRelicApp != nil {
		m.newRelicApp.Shutdown(5 * time.Second)
	}
}
