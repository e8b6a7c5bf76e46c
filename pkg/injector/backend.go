package injector

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/types"
)

// TrafficShaper applies and removes network shaping rules on a target
// implementations own the physical mechanism, the orchestrator only
// depends on this contract
type TrafficShaper interface {
	ApplyDelay(ctx context.Context, target types.ExperimentTarget, delayMs, jitterMs int) error
	ApplyPartition(ctx context.Context, target types.ExperimentTarget, blockIngress, blockEgress bool) error
	Remove(ctx context.Context, target types.ExperimentTarget) error
}

// StressRunner starts and stops resource stress workloads on a target
type StressRunner interface {
	Start(ctx context.Context, kind types.FailureType, target types.ExperimentTarget, params map[string]interface{}) error
	Stop(ctx context.Context, target types.ExperimentTarget) error
}

// ExecShaper shapes traffic with tc/iptables commands on the local node
type ExecShaper struct{}

func (s *ExecShaper) ApplyDelay(ctx context.Context, target types.ExperimentTarget, delayMs, jitterMs int) error {
	tc := fmt.Sprintf("tc qdisc add dev eth0 root netem delay %dms %dms", delayMs, jitterMs)
	return runCommand(ctx, tc)
}

func (s *ExecShaper) ApplyPartition(ctx context.Context, target types.ExperimentTarget, blockIngress, blockEgress bool) error {
	if blockIngress {
		if err := runCommand(ctx, "iptables -A INPUT -m comment --comment chaos-partition -j DROP"); err != nil {
			return err
		}
	}
	if blockEgress {
		if err := runCommand(ctx, "iptables -A OUTPUT -m comment --comment chaos-partition -j DROP"); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExecShaper) Remove(ctx context.Context, target types.ExperimentTarget) error {
	// qdisc removal fails when no delay rule was installed, partition rules
	// are matched by comment so their removal is idempotent
	_ = runCommand(ctx, "tc qdisc del dev eth0 root netem")
	_ = runCommand(ctx, "iptables -D INPUT -m comment --comment chaos-partition -j DROP")
	_ = runCommand(ctx, "iptables -D OUTPUT -m comment --comment chaos-partition -j DROP")
	return nil
}

// ExecStress drives stress-ng workloads on the local node
type ExecStress struct{}

func (s *ExecStress) Start(ctx context.Context, kind types.FailureType, target types.ExperimentTarget, params map[string]interface{}) error {
	var cmd string
	switch kind {
	case types.CPUStress:
		workers := intParam(params, "workers", 1)
		cmd = fmt.Sprintf("stress-ng --cpu %d --timeout 0 &", workers)
	case types.MemoryStress:
		sizeMb := intParam(params, "size_mb", 256)
		cmd = fmt.Sprintf("stress-ng --vm 1 --vm-bytes %dM --timeout 0 &", sizeMb)
	default:
		return errors.Errorf("unsupported stress kind: %v", kind)
	}
	return runCommand(ctx, cmd)
}

func (s *ExecStress) Stop(ctx context.Context, target types.ExperimentTarget) error {
	return runCommand(ctx, "pkill -f stress-ng")
}

// runCommand executes the given shell command and logs its output on failure
func runCommand(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", command)
	log.Info(cmd.String())
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Error(string(out))
		return err
	}
	return nil
}
