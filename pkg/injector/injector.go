package injector

import (
	"context"

	"github.com/qraiop/chaos-go/pkg/cerrors"
	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/types"
)

// Injector dispatches the failure injection strategy for a failure type
// it performs the injection and returns a structured record of what was done,
// steady-state judgement is left entirely to the caller
type Injector struct {
	Clients clients.ClientSets
	Shaper  TrafficShaper
	Stress  StressRunner
}

// New creates the injector with the given backends
// nil backends fall back to the local exec implementations
func New(clientSets clients.ClientSets, shaper TrafficShaper, stress StressRunner) *Injector {
	if shaper == nil {
		shaper = &ExecShaper{}
	}
	if stress == nil {
		stress = &ExecStress{}
	}
	return &Injector{
		Clients: clientSets,
		Shaper:  shaper,
		Stress:  stress,
	}
}

// Inject applies the failure described by the config and returns its record
func (in *Injector) Inject(ctx context.Context, config types.ExperimentConfig) (*types.FailureRecord, error) {
	switch config.FailureType {
	case types.PodKill:
		return in.injectPodKill(ctx, config)
	case types.NetworkDelay:
		return in.injectNetworkDelay(ctx, config)
	case types.NetworkPartition:
		return in.injectNetworkPartition(ctx, config)
	case types.CPUStress, types.MemoryStress:
		return in.injectStress(ctx, config)
	case types.DiskFill, types.DNSChaos, types.ServiceMeshFault:
		return nil, cerrors.UnsupportedFault{Kind: string(config.FailureType)}
	default:
		return nil, cerrors.UnsupportedFault{Kind: string(config.FailureType)}
	}
}

// newRecord builds the base failure record for the given config
func newRecord(config types.ExperimentConfig) *types.FailureRecord {
	return &types.FailureRecord{
		Kind:       config.FailureType,
		Parameters: config.Parameters,
		Target:     config.Target,
	}
}
