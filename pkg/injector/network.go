package injector

import (
	"context"
	"time"

	"github.com/qraiop/chaos-go/pkg/cerrors"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/types"
)

// injectNetworkDelay applies a netem delay qdisc on the target through the shaper backend
func (in *Injector) injectNetworkDelay(ctx context.Context, config types.ExperimentConfig) (*types.FailureRecord, error) {

	delayMs := intParam(config.Parameters, "delay_ms", 100)
	jitterMs := intParam(config.Parameters, "jitter_ms", delayMs/10)

	log.Infof("[Chaos]: Injecting %vms network delay (jitter %vms) on %v", delayMs, jitterMs, config.Target.LabelSelector())
	if err := in.Shaper.ApplyDelay(ctx, config.Target, delayMs, jitterMs); err != nil {
		return nil, cerrors.Injection{Kind: string(types.NetworkDelay), Target: config.Target.LabelSelector(), Reason: err.Error()}
	}

	record := newRecord(config)
	record.Timestamp = time.Now()
	return record, nil
}

// injectNetworkPartition blocks the traffic between the source and the target selectors
func (in *Injector) injectNetworkPartition(ctx context.Context, config types.ExperimentConfig) (*types.FailureRecord, error) {

	blockIngress := boolParam(config.Parameters, "block_ingress", true)
	blockEgress := boolParam(config.Parameters, "block_egress", true)

	log.Infof("[Chaos]: Injecting network partition on %v (ingress=%v egress=%v)", config.Target.LabelSelector(), blockIngress, blockEgress)
	if err := in.Shaper.ApplyPartition(ctx, config.Target, blockIngress, blockEgress); err != nil {
		return nil, cerrors.Injection{Kind: string(types.NetworkPartition), Target: config.Target.LabelSelector(), Reason: err.Error()}
	}

	record := newRecord(config)
	record.Timestamp = time.Now()
	return record, nil
}

// injectStress starts a cpu or memory stress workload through the stress backend
func (in *Injector) injectStress(ctx context.Context, config types.ExperimentConfig) (*types.FailureRecord, error) {

	log.Infof("[Chaos]: Injecting %v on %v", config.FailureType, config.Target.LabelSelector())
	if err := in.Stress.Start(ctx, config.FailureType, config.Target, config.Parameters); err != nil {
		return nil, cerrors.Injection{Kind: string(config.FailureType), Target: config.Target.LabelSelector(), Reason: err.Error()}
	}

	record := newRecord(config)
	record.Timestamp = time.Now()
	return record, nil
}

// intParam reads an integer parameter tolerating json float decoding
func intParam(params map[string]interface{}, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func boolParam(params map[string]interface{}, key string, fallback bool) bool {
	if params == nil {
		return fallback
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}
