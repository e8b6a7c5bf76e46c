package scenarios

import (
	"fmt"

	"github.com/qraiop/chaos-go/pkg/types"
)

// NetworkDelay builds a network delay experiment with a default
// steady-state hypothesis covering pod health and service availability
func NetworkDelay(namespace string, selector map[string]string, delayMs, duration int) types.ExperimentConfig {
	if selector == nil {
		selector = map[string]string{"app": "web"}
	}

	return types.ExperimentConfig{
		Name:        fmt.Sprintf("network-delay-%s", namespace),
		Description: fmt.Sprintf("Inject %dms network delay for %ds", delayMs, duration),
		FailureType: types.NetworkDelay,
		Target: types.ExperimentTarget{
			Namespace:  namespace,
			Selector:   selector,
			Percentage: 50,
		},
		Duration: duration,
		Parameters: map[string]interface{}{
			"delay_ms":  delayMs,
			"jitter_ms": delayMs / 10,
		},
		Hypothesis: &types.SteadyStateHypothesis{
			PodHealth: &types.PodHealthCheck{
				Namespace:   namespace,
				Selector:    selector,
				MinReplicas: 1,
			},
			ServiceAvailability: &types.ServiceAvailabilityCheck{
				URL:            fmt.Sprintf("http://web-service.%s.svc.cluster.local/health", namespace),
				ExpectedStatus: 200,
				Timeout:        5,
			},
		},
	}
}

// NetworkPartition builds a network partition experiment between the
// source and target selectors
func NetworkPartition(namespace string, sourceSelector, targetSelector map[string]string, duration int) types.ExperimentConfig {
	if sourceSelector == nil {
		sourceSelector = map[string]string{"app": "frontend"}
	}
	if targetSelector == nil {
		targetSelector = map[string]string{"app": "backend"}
	}

	return types.ExperimentConfig{
		Name:        fmt.Sprintf("network-partition-%s", namespace),
		Description: fmt.Sprintf("Network partition between services for %ds", duration),
		FailureType: types.NetworkPartition,
		Target: types.ExperimentTarget{
			Namespace:  namespace,
			Selector:   sourceSelector,
			Percentage: 100,
		},
		Duration: duration,
		Parameters: map[string]interface{}{
			"target_selector": targetSelector,
			"block_ingress":   true,
			"block_egress":    true,
		},
		Hypothesis: &types.SteadyStateHypothesis{
			PodHealth: &types.PodHealthCheck{
				Namespace:   namespace,
				Selector:    sourceSelector,
				MinReplicas: 1,
			},
		},
	}
}
