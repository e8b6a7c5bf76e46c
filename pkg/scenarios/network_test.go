package scenarios

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qraiop/chaos-go/pkg/types"
)

func TestNetworkDelayDefaults(t *testing.T) {
	config := NetworkDelay("staging", nil, 200, 60)

	assert.Equal(t, "network-delay-staging", config.Name)
	assert.Equal(t, types.NetworkDelay, config.FailureType)
	assert.Equal(t, "staging", config.Target.Namespace)
	assert.Equal(t, map[string]string{"app": "web"}, config.Target.Selector)
	assert.Equal(t, 50, config.Target.Percentage)
	assert.Equal(t, 60, config.Duration)

	assert.Equal(t, 200, config.Parameters["delay_ms"])
	assert.Equal(t, 20, config.Parameters["jitter_ms"])

	require.NotNil(t, config.Hypothesis)
	require.NotNil(t, config.Hypothesis.PodHealth)
	assert.Equal(t, 1, config.Hypothesis.PodHealth.MinReplicas)
	require.NotNil(t, config.Hypothesis.ServiceAvailability)
	assert.Equal(t, "http://web-service.staging.svc.cluster.local/health", config.Hypothesis.ServiceAvailability.URL)
	assert.Equal(t, 200, config.Hypothesis.ServiceAvailability.ExpectedStatus)

	require.NoError(t, config.Validate())
}

func TestNetworkDelayCustomSelector(t *testing.T) {
	selector := map[string]string{"app": "api", "tier": "edge"}
	config := NetworkDelay("prod", selector, 100, 30)

	assert.Equal(t, selector, config.Target.Selector)
	assert.Equal(t, selector, config.Hypothesis.PodHealth.Selector)
}

func TestNetworkPartitionDefaults(t *testing.T) {
	config := NetworkPartition("staging", nil, nil, 120)

	assert.Equal(t, "network-partition-staging", config.Name)
	assert.Equal(t, types.NetworkPartition, config.FailureType)
	assert.Equal(t, map[string]string{"app": "frontend"}, config.Target.Selector)
	assert.Equal(t, 100, config.Target.Percentage)

	assert.Equal(t, map[string]string{"app": "backend"}, config.Parameters["target_selector"])
	assert.Equal(t, true, config.Parameters["block_ingress"])
	assert.Equal(t, true, config.Parameters["block_egress"])

	require.NoError(t, config.Validate())
}
