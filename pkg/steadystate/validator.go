package steadystate

import (
	"context"
	"net/http"
	"time"

	logrus "github.com/sirupsen/logrus"

	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/status"
	"github.com/qraiop/chaos-go/pkg/types"
)

const defaultHTTPTimeout = 5 * time.Second

// SnapshotFunc provides the metrics snapshot the threshold check evaluates against
type SnapshotFunc func(ctx context.Context) (*types.MetricsSnapshot, error)

// Validator evaluates a steady-state hypothesis against the live cluster
// every check converts its own failures into an invalid verdict, validation
// always produces a report and never returns an error
type Validator struct {
	Clients     clients.ClientSets
	HTTPTimeout time.Duration
	Snapshot    SnapshotFunc
}

// New creates the validator with the default http timeout
func New(clientSets clients.ClientSets, snapshot SnapshotFunc) *Validator {
	return &Validator{
		Clients:     clientSets,
		HTTPTimeout: defaultHTTPTimeout,
		Snapshot:    snapshot,
	}
}

// Validate runs every present check of the hypothesis independently
// the aggregate verdict is the logical AND across present checks,
// vacuously true when no checks are given
func (v *Validator) Validate(ctx context.Context, hypothesis *types.SteadyStateHypothesis) *types.ValidationReport {
	report := &types.ValidationReport{
		Valid:     true,
		Timestamp: time.Now(),
	}
	if hypothesis == nil {
		return report
	}

	if hypothesis.PodHealth != nil {
		check := v.checkPodHealth(ctx, hypothesis.PodHealth)
		report.Valid = report.Valid && check.Valid
		report.Checks = append(report.Checks, check)
	}
	if hypothesis.ServiceAvailability != nil {
		check := v.checkServiceAvailability(ctx, hypothesis.ServiceAvailability)
		report.Valid = report.Valid && check.Valid
		report.Checks = append(report.Checks, check)
	}
	if hypothesis.Metrics != nil {
		check := v.checkMetrics(ctx, hypothesis.Metrics)
		report.Valid = report.Valid && check.Valid
		report.Checks = append(report.Checks, check)
	}

	log.InfoWithValues("[SteadyState]: Hypothesis verdict", logrus.Fields{
		"Valid": report.Valid, "Checks": len(report.Checks)})
	return report
}

// checkPodHealth is valid iff the count of pods both running and ready
// is at least the declared minimum number of replicas
func (v *Validator) checkPodHealth(ctx context.Context, check *types.PodHealthCheck) types.CheckResult {
	result := types.CheckResult{Type: "pod_health", MinReplicas: check.MinReplicas}

	target := types.ExperimentTarget{Namespace: check.Namespace, Selector: check.Selector}
	count, err := status.RunningReadyPodCount(ctx, check.Namespace, target.LabelSelector(), v.Clients)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.RunningPods = count
	result.Valid = count >= check.MinReplicas
	return result
}

// checkServiceAvailability issues a bounded-timeout GET against the url and
// compares the response code with the expectation, recording the latency
func (v *Validator) checkServiceAvailability(ctx context.Context, check *types.ServiceAvailabilityCheck) types.CheckResult {
	result := types.CheckResult{Type: "service_availability"}

	timeout := v.HTTPTimeout
	if check.Timeout > 0 {
		timeout = time.Duration(check.Timeout) * time.Second
	}
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, check.URL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.LatencySeconds = time.Since(start).Seconds()
	result.StatusCode = resp.StatusCode
	result.Valid = resp.StatusCode == check.ExpectedStatus
	return result
}

// checkMetrics compares the collected snapshot against the declared thresholds
func (v *Validator) checkMetrics(ctx context.Context, check *types.MetricsCheck) types.CheckResult {
	result := types.CheckResult{Type: "metrics"}

	if v.Snapshot == nil {
		result.Error = "no metrics source configured"
		return result
	}
	snapshot, err := v.Snapshot(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Valid = true
	if check.MaxErrorRatePercent > 0 && snapshot.ErrorRatePercent > check.MaxErrorRatePercent {
		result.Valid = false
	}
	if check.MaxLatencySeconds > 0 && snapshot.NetworkLatencySeconds > check.MaxLatencySeconds {
		result.Valid = false
	}
	result.LatencySeconds = snapshot.NetworkLatencySeconds
	return result
}
