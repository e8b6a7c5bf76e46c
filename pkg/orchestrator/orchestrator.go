package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/qraiop/chaos-go/pkg/cerrors"
	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/injector"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/recovery"
	"github.com/qraiop/chaos-go/pkg/steadystate"
	"github.com/qraiop/chaos-go/pkg/telemetry"
	"github.com/qraiop/chaos-go/pkg/types"
)

// Orchestrator sequences validation, injection, dwell, metrics collection
// and recovery for chaos experiments, it owns the running and history
// registries and guarantees a recovery attempt on every exit path
type Orchestrator struct {
	Clients   clients.ClientSets
	Injector  *injector.Injector
	Validator *steadystate.Validator
	Recoverer *recovery.Coordinator
	Collect   func(ctx context.Context) *types.MetricsSnapshot

	mu      sync.Mutex
	running map[string]*types.ExperimentResult
	history []*types.ExperimentResult
	// claims counts the failure records per experiment whose recovery has
	// been claimed, the run and abort paths race for the claim
	claims map[string]int

	// sleep is the dwell primitive, swapped out in tests
	sleep func(d time.Duration)
}

// New creates the orchestrator with empty registries
func New(clientSets clients.ClientSets, inject *injector.Injector, validate *steadystate.Validator, recover *recovery.Coordinator, collect func(ctx context.Context) *types.MetricsSnapshot) *Orchestrator {
	return &Orchestrator{
		Clients:   clientSets,
		Injector:  inject,
		Validator: validate,
		Recoverer: recover,
		Collect:   collect,
		running:   map[string]*types.ExperimentResult{},
		claims:    map[string]int{},
		sleep:     time.Sleep,
	}
}

// Run executes one chaos experiment to a terminal state
// the returned result is always terminal, on failure the primary error is
// preserved verbatim and a best-effort recovery is still attempted
func (o *Orchestrator) Run(ctx context.Context, config types.ExperimentConfig) (*types.ExperimentResult, error) {
	result, err := o.register(config)
	if err != nil {
		return nil, err
	}
	return o.runRegistered(ctx, config, result)
}

// Submit registers the experiment and runs it in the background, the
// returned id is stable and usable for Get and Abort immediately
func (o *Orchestrator) Submit(config types.ExperimentConfig) (string, error) {
	result, err := o.register(config)
	if err != nil {
		return "", err
	}
	go func() {
		// the run outlives the submitting request
		if _, err := o.runRegistered(context.Background(), config, result); err != nil {
			log.Errorf("[Orchestrator]: Experiment %v failed, err: %v", result.ID, err)
		}
	}()
	return result.ID, nil
}

// register validates the config and places a pending result in the
// running registry
func (o *Orchestrator) register(config types.ExperimentConfig) (*types.ExperimentResult, error) {
	if err := config.Validate(); err != nil {
		return nil, cerrors.Generic{Phase: "Validation", Reason: err.Error()}
	}
	result := &types.ExperimentResult{
		ID:        uuid.New().String(),
		Name:      config.Name,
		Status:    types.StatusPending,
		StartTime: time.Now(),
	}
	o.mu.Lock()
	o.running[result.ID] = result
	o.mu.Unlock()
	return result, nil
}

func (o *Orchestrator) runRegistered(ctx context.Context, config types.ExperimentConfig, result *types.ExperimentResult) (*types.ExperimentResult, error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "ChaosExperiment")
	span.SetAttributes(
		attribute.String("experiment.name", config.Name),
		attribute.String("experiment.failure_type", string(config.FailureType)),
	)
	defer span.End()

	log.InfoWithValues("[Orchestrator]: Starting experiment", logrus.Fields{
		"ID": result.ID, "Name": config.Name, "FailureType": config.FailureType})

	err := o.execute(ctx, config, result)
	if err != nil && err != errAborted {
		// cleanup must run even when the experiment itself failed,
		// its own failure is recorded separately and never re-raised
		o.recoverBestEffort(ctx, result)
	}

	o.finalize(result, err)
	if err == errAborted {
		return result, nil
	}
	return result, err
}

// errAborted is the sentinel for a run overtaken by Abort, the abort path
// owns the terminal transition and the recovery attempt in that case
var errAborted = cerrors.Generic{Phase: "Run", Reason: "experiment aborted"}

// execute walks the main sequence, steps run strictly in order
func (o *Orchestrator) execute(ctx context.Context, config types.ExperimentConfig, result *types.ExperimentResult) error {

	// never inject into a system already outside its declared baseline
	if config.Hypothesis != nil {
		log.Info("[SteadyState]: Validating the hypothesis before injecting chaos")
		report := o.Validator.Validate(ctx, config.Hypothesis)
		o.mu.Lock()
		result.SteadyStateBefore = report
		o.mu.Unlock()
		if !report.Valid {
			return cerrors.SteadyStateChecks{Phase: "before"}
		}
	}

	if !o.transition(result, types.StatusPending, types.StatusRunning) {
		return errAborted
	}

	record, err := o.Injector.Inject(ctx, config)
	if err != nil {
		return err
	}
	o.mu.Lock()
	result.Failures = append(result.Failures, *record)
	o.mu.Unlock()

	// the blast-radius window is the experiment's deliberate design,
	// it has no timeout of its own
	if config.Duration > 0 {
		log.Infof("[Wait]: Holding the failure for the %vs chaos duration", config.Duration)
		o.sleep(time.Duration(config.Duration) * time.Second)
	}

	if o.Collect != nil {
		log.Info("[Metrics]: Collecting the post-chaos metrics snapshot")
		snapshot := o.Collect(ctx)
		o.mu.Lock()
		result.Metrics = snapshot
		o.mu.Unlock()
	}

	if o.aborted(result) {
		return errAborted
	}

	// the claim settles the race with Abort, only one side may invoke
	// the coordinator for a given failure record
	claimed := o.claimRecovery(result)
	if claimed == nil {
		return errAborted
	}
	recoveryRecord, err := o.Recoverer.Recover(ctx, claimed)
	if recoveryRecord != nil {
		o.appendRecovery(result, *recoveryRecord)
	}
	if err != nil {
		return err
	}
	if o.aborted(result) {
		return errAborted
	}

	if config.Hypothesis != nil {
		log.Info("[SteadyState]: Re-validating the hypothesis after recovery")
		report := o.Validator.Validate(ctx, config.Hypothesis)
		o.mu.Lock()
		result.SteadyStateAfter = report
		o.mu.Unlock()
	}

	return nil
}

// recoverBestEffort attempts recovery for the most recent injected failure
// that no one has claimed yet
func (o *Orchestrator) recoverBestEffort(ctx context.Context, result *types.ExperimentResult) {
	record := o.claimRecovery(result)
	if record == nil {
		return
	}

	log.Warnf("[Recovery]: Experiment failed mid-flight, attempting best-effort recovery from '%v' fault", record.Kind)
	recoveryRecord, err := o.Recoverer.Recover(ctx, record)
	if recoveryRecord != nil {
		o.appendRecovery(result, *recoveryRecord)
	}
	if err != nil {
		log.Errorf("[Recovery]: Best-effort recovery failed, err: %v", err)
		rootCause, _ := cerrors.GetRootCauseAndErrorCode(err)
		o.mu.Lock()
		result.RecoveryError = rootCause
		o.mu.Unlock()
	}
}

// claimRecovery atomically claims the newest failure record that has no
// recovery attempt yet, returning nil when every failure is already
// claimed, only the claimant may invoke the coordinator for that record
func (o *Orchestrator) claimRecovery(result *types.ExperimentResult) *types.FailureRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	claimed := o.claims[result.ID]
	if n := len(result.Recoveries); n > claimed {
		claimed = n
	}
	if len(result.Failures) <= claimed {
		return nil
	}
	o.claims[result.ID] = len(result.Failures)
	record := result.Failures[len(result.Failures)-1]
	return &record
}

// finalize moves the result from running to history exactly once
// when Abort won the race the result is already terminal and in history
func (o *Orchestrator) finalize(result *types.ExperimentResult, err error) {
	o.mu.Lock()
	if _, ok := o.running[result.ID]; !ok {
		o.mu.Unlock()
		return
	}

	switch {
	case err != nil:
		result.Status = types.StatusFailed
		rootCause, _ := cerrors.GetRootCauseAndErrorCode(err)
		result.Error = rootCause
	default:
		result.Status = types.StatusCompleted
	}
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime).Seconds()

	delete(o.running, result.ID)
	delete(o.claims, result.ID)
	o.history = append(o.history, result)
	o.mu.Unlock()

	telemetry.RecordExperiment(string(result.Status), result.Duration)
	log.InfoWithValues("[Orchestrator]: Experiment reached terminal state", logrus.Fields{
		"ID": result.ID, "Status": result.Status, "Duration": result.Duration})
}

// Abort cancels a running experiment, returns false when the id is not
// currently running, recovery from the last injected failure is still
// attempted, cancellation never skips cleanup
func (o *Orchestrator) Abort(ctx context.Context, id string) bool {
	o.mu.Lock()
	result, ok := o.running[id]
	if !ok {
		o.mu.Unlock()
		return false
	}

	result.Status = types.StatusAborted
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime).Seconds()
	delete(o.running, id)
	o.history = append(o.history, result)
	o.mu.Unlock()

	log.Warnf("[Orchestrator]: Experiment %v aborted", id)
	o.recoverBestEffort(ctx, result)

	o.mu.Lock()
	delete(o.claims, id)
	o.mu.Unlock()

	telemetry.RecordExperiment(string(types.StatusAborted), result.Duration)
	return true
}

// Get looks the experiment up across running then history, the returned
// result is a point-in-time copy safe to read without the lock
func (o *Orchestrator) Get(id string) (*types.ExperimentResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if result, ok := o.running[id]; ok {
		return snapshot(result), true
	}
	for _, result := range o.history {
		if result.ID == id {
			return snapshot(result), true
		}
	}
	return nil, false
}

// List returns point-in-time copies of the experiments across running
// then history, optionally filtered by status
func (o *Orchestrator) List(statusFilter ...types.ExperimentStatus) []*types.ExperimentResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	results := make([]*types.ExperimentResult, 0, len(o.running)+len(o.history))
	for _, result := range o.running {
		results = append(results, snapshot(result))
	}
	for _, result := range o.history {
		results = append(results, snapshot(result))
	}

	if len(statusFilter) == 0 {
		return results
	}
	filtered := results[:0]
	for _, result := range results {
		for _, status := range statusFilter {
			if result.Status == status {
				filtered = append(filtered, result)
				break
			}
		}
	}
	return filtered
}

// snapshot copies the result so callers can read and encode it while the
// run goroutine keeps mutating the registered original under the lock
func snapshot(result *types.ExperimentResult) *types.ExperimentResult {
	copied := *result
	return &copied
}

// transition moves the result between lifecycle phases, transitions are
// monotonic and never revisited
func (o *Orchestrator) transition(result *types.ExperimentResult, from, to types.ExperimentStatus) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if result.Status != from {
		return false
	}
	result.Status = to
	return true
}

func (o *Orchestrator) aborted(result *types.ExperimentResult) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return result.Status == types.StatusAborted
}

func (o *Orchestrator) appendRecovery(result *types.ExperimentResult, record types.RecoveryRecord) {
	o.mu.Lock()
	result.Recoveries = append(result.Recoveries, record)
	o.mu.Unlock()
	telemetry.RecordRecoveryAction(record.Kind, record.Status)
}
