package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/qraiop/chaos-go/pkg/cerrors"
	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/injector"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/status"
	"github.com/qraiop/chaos-go/pkg/types"
	"github.com/qraiop/chaos-go/pkg/utils/retry"
)

const (
	defaultTimeout = 300
	defaultDelay   = 5
)

// Coordinator drives the cluster back to healthy after a failure injection
type Coordinator struct {
	Clients clients.ClientSets
	Shaper  injector.TrafficShaper
	Stress  injector.StressRunner
	// Timeout and Delay bound the pod replacement polling, in seconds
	Timeout int
	Delay   int
}

// New creates the coordinator with the default polling bounds
func New(clientSets clients.ClientSets, shaper injector.TrafficShaper, stress injector.StressRunner) *Coordinator {
	if shaper == nil {
		shaper = &injector.ExecShaper{}
	}
	if stress == nil {
		stress = &injector.ExecStress{}
	}
	return &Coordinator{
		Clients: clientSets,
		Shaper:  shaper,
		Stress:  stress,
		Timeout: defaultTimeout,
		Delay:   defaultDelay,
	}
}

// Recover dispatches the recovery strategy on the injected failure kind
// pod replacement is the only recovery that fails hard, leaving a system
// under-replicated is unsafe to swallow silently; every other strategy
// reports its failure inside the record instead of escalating
func (c *Coordinator) Recover(ctx context.Context, record *types.FailureRecord) (*types.RecoveryRecord, error) {
	switch record.Kind {
	case types.PodKill:
		return c.recoverPodKill(ctx, record)
	case types.NetworkDelay, types.NetworkPartition:
		return c.removeNetworkRules(ctx, record), nil
	case types.CPUStress, types.MemoryStress:
		return c.stopStress(ctx, record), nil
	default:
		// explicitly typed no-op, never silently absent
		log.Warnf("[Recovery]: No recovery handler for '%v' fault, recording no-op", record.Kind)
		return &types.RecoveryRecord{
			Kind:      types.RecoveryNoAction,
			Status:    types.RecoverySucceeded,
			Details:   fmt.Sprintf("no recovery handler for '%v' fault", record.Kind),
			Timestamp: time.Now(),
		}, nil
	}
}

// recoverPodKill polls until the count of running pods matching the original
// selector reaches the count originally killed, bounded by the timeout
func (c *Coordinator) recoverPodKill(ctx context.Context, record *types.FailureRecord) (*types.RecoveryRecord, error) {

	expected := len(record.KilledPods)
	selector := record.Target.LabelSelector()
	log.Infof("[Recovery]: Waiting for %v replacement pod(s) with selector '%v'", expected, selector)

	var recoveredPods []string
	err := retry.
		Times(uint(c.Timeout / c.Delay)).
		Wait(time.Duration(c.Delay) * time.Second).
		Try(func(attempt uint) error {
			count, names, err := status.RunningPodCount(ctx, record.Target.Namespace, selector, c.Clients)
			if err != nil {
				return err
			}
			if count < expected {
				return fmt.Errorf("only %v of %v pods are running", count, expected)
			}
			recoveredPods = names
			return nil
		})
	if err != nil {
		return &types.RecoveryRecord{
			Kind:      "pod_recovery",
			Status:    types.RecoveryFailed,
			Error:     err.Error(),
			Timestamp: time.Now(),
		}, cerrors.RecoveryTimeout{Kind: string(types.PodKill), Reason: err.Error()}
	}

	// the replacement pods must also reach ready before the recovery
	// is declared done
	if err := status.CheckApplicationStatus(ctx, record.Target.Namespace, selector, c.Timeout, c.Delay, c.Clients); err != nil {
		return &types.RecoveryRecord{
			Kind:      "pod_recovery",
			Status:    types.RecoveryFailed,
			Error:     err.Error(),
			Timestamp: time.Now(),
		}, cerrors.RecoveryTimeout{Kind: string(types.PodKill), Reason: err.Error()}
	}

	log.Infof("[Recovery]: %v pod(s) are back in running state", len(recoveredPods))
	return &types.RecoveryRecord{
		Kind:          "pod_recovery",
		Status:        types.RecoverySucceeded,
		RecoveredPods: recoveredPods,
		Timestamp:     time.Now(),
	}, nil
}

// removeNetworkRules removes the injected traffic shaping rules
func (c *Coordinator) removeNetworkRules(ctx context.Context, record *types.FailureRecord) *types.RecoveryRecord {
	result := &types.RecoveryRecord{
		Kind:      "network_rule_removal",
		Status:    types.RecoverySucceeded,
		Timestamp: time.Now(),
	}
	if err := c.Shaper.Remove(ctx, record.Target); err != nil {
		log.Errorf("[Recovery]: Unable to remove the network rules, err: %v", err)
		result.Status = types.RecoveryFailed
		result.Error = err.Error()
	}
	return result
}

// stopStress terminates the injected stress workload
func (c *Coordinator) stopStress(ctx context.Context, record *types.FailureRecord) *types.RecoveryRecord {
	result := &types.RecoveryRecord{
		Kind:      "stress_termination",
		Status:    types.RecoverySucceeded,
		Timestamp: time.Now(),
	}
	if err := c.Stress.Stop(ctx, record.Target); err != nil {
		log.Errorf("[Recovery]: Unable to stop the stress workload, err: %v", err)
		result.Status = types.RecoveryFailed
		result.Error = err.Error()
	}
	return result
}
