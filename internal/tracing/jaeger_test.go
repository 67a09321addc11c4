package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/internal/logger"
)

func TestJaegerConfiguration(t *testing.T) {
	agent := jaegerConfiguration(&JaegerConfig{ServiceName: "mailbridge", AgentHost: "jaeger", AgentPort: "6831", SamplerType: "const", SamplerParam: 1})
	assert.Equal(t, "jaeger:6831", agent.Reporter.LocalAgentHostPort)
	assert.Empty(t, agent.Reporter.CollectorEndpoint)
	assert.Equal(t, "mailbridge", agent.ServiceName)

	collector := jaegerConfiguration(&JaegerConfig{Endpoint: "http://jaeger:14268/api/traces", AgentHost: "jaeger", AgentPort: "6831"})
	assert.Equal(t, "http://jaeger:14268/api/traces", collector.Reporter.CollectorEndpoint)
	assert.Empty(t, collector.Reporter.LocalAgentHostPort)
}

func TestNewJaegerTracer_Disabled(t *testing.T) {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()

	tracer, closer, err := NewJaegerTracer(&JaegerConfig{Enabled: false}, appLogger)

	require.NoError(t, err)
	assert.IsType(t, opentracing.NoopTracer{}, tracer)
	assert.NoError(t, closer.Close())
}
