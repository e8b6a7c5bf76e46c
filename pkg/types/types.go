package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExperimentStatus is the lifecycle phase of a chaos experiment
type ExperimentStatus string

const (
	// StatusPending marked the experiment as registered but not yet started
	StatusPending ExperimentStatus = "pending"
	// StatusRunning marked the experiment as injecting chaos
	StatusRunning ExperimentStatus = "running"
	// StatusCompleted marked the experiment as finished successfully
	StatusCompleted ExperimentStatus = "completed"
	// StatusFailed marked the experiment as finished with an error
	StatusFailed ExperimentStatus = "failed"
	// StatusAborted marked the experiment as cancelled by the caller
	StatusAborted ExperimentStatus = "aborted"
)

// FailureType is the kind of failure injected into the target
type FailureType string

const (
	PodKill          FailureType = "pod-kill"
	NetworkDelay     FailureType = "network-delay"
	NetworkPartition FailureType = "network-partition"
	CPUStress        FailureType = "cpu-stress"
	MemoryStress     FailureType = "memory-stress"
	DiskFill         FailureType = "disk-fill"
	DNSChaos         FailureType = "dns-chaos"
	ServiceMeshFault FailureType = "service-mesh-fault"
)

// ExperimentTarget describes which pods the chaos will be applied on
type ExperimentTarget struct {
	Namespace  string            `json:"namespace" yaml:"namespace"`
	Selector   map[string]string `json:"selector" yaml:"selector"`
	Percentage int               `json:"percentage" yaml:"percentage"`
}

// LabelSelector derives the label selector string from the selector map
// keys are sorted so the same target always yields the same selector
func (t ExperimentTarget) LabelSelector() string {
	keys := make([]string, 0, len(t.Selector))
	for k := range t.Selector {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+t.Selector[k])
	}
	return strings.Join(pairs, ",")
}

// PodHealthCheck declares the minimum number of running & ready replicas
type PodHealthCheck struct {
	Namespace   string            `json:"namespace" yaml:"namespace"`
	Selector    map[string]string `json:"selector" yaml:"selector"`
	MinReplicas int               `json:"min_replicas" yaml:"min_replicas"`
}

// ServiceAvailabilityCheck declares a http endpoint and the expected response code
type ServiceAvailabilityCheck struct {
	URL            string `json:"url" yaml:"url"`
	ExpectedStatus int    `json:"expected_status" yaml:"expected_status"`
	Timeout        int    `json:"timeout" yaml:"timeout"`
}

// MetricsCheck declares thresholds evaluated against the collected snapshot
type MetricsCheck struct {
	MaxErrorRatePercent float64 `json:"max_error_rate_percent" yaml:"max_error_rate_percent"`
	MaxLatencySeconds   float64 `json:"max_latency_seconds" yaml:"max_latency_seconds"`
}

// SteadyStateHypothesis is the set of checks that define the system baseline
// all the checks are optional, an absent check is vacuously valid
type SteadyStateHypothesis struct {
	PodHealth           *PodHealthCheck           `json:"pod_health,omitempty" yaml:"pod_health,omitempty"`
	ServiceAvailability *ServiceAvailabilityCheck `json:"service_availability,omitempty" yaml:"service_availability,omitempty"`
	Metrics             *MetricsCheck             `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// ExperimentConfig is the immutable description of one chaos experiment
type ExperimentConfig struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	FailureType FailureType            `json:"failure_type" yaml:"failure_type"`
	Target      ExperimentTarget       `json:"target" yaml:"target"`
	Duration    int                    `json:"duration" yaml:"duration"`
	Parameters  map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Hypothesis  *SteadyStateHypothesis `json:"steady_state_hypothesis,omitempty" yaml:"steady_state_hypothesis,omitempty"`
	Rollback    string                 `json:"rollback,omitempty" yaml:"rollback,omitempty"`
}

// Validate verifies the experiment configuration before it is accepted
func (c ExperimentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if c.FailureType == "" {
		return fmt.Errorf("failure type is required")
	}
	if c.Target.Namespace == "" {
		return fmt.Errorf("target namespace is required")
	}
	if c.Target.Percentage < 1 || c.Target.Percentage > 100 {
		return fmt.Errorf("target percentage should be in the range 1-100, got %v", c.Target.Percentage)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration should not be negative, got %v", c.Duration)
	}
	return nil
}

// FailureRecord is the structured record of one injected failure
type FailureRecord struct {
	Kind       FailureType            `json:"kind"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Target     ExperimentTarget       `json:"target"`
	Timestamp  time.Time              `json:"timestamp"`
	// KilledPods holds the exact pod names deleted by the pod-kill fault
	// recovery uses its length to size the wait condition
	KilledPods []string `json:"killed_pods,omitempty"`
}

// RecoveryRecord is the structured record of one recovery attempt
type RecoveryRecord struct {
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	RecoveredPods []string  `json:"recovered_pods,omitempty"`
	Details       string    `json:"details,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	// RecoverySucceeded recovery action finished successfully
	RecoverySucceeded = "succeeded"
	// RecoveryFailed recovery action reported its own failure
	RecoveryFailed = "failed"
	// RecoveryNoAction no recovery handler exists for the injected kind
	RecoveryNoAction = "no_action"
)

// CheckResult holds the verdict and diagnostics of a single steady-state check
type CheckResult struct {
	Type           string  `json:"type"`
	Valid          bool    `json:"valid"`
	RunningPods    int     `json:"running_pods,omitempty"`
	MinReplicas    int     `json:"min_replicas,omitempty"`
	StatusCode     int     `json:"status_code,omitempty"`
	LatencySeconds float64 `json:"latency_seconds,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// ValidationReport aggregates the steady-state check results
// Valid is the logical AND across the present checks
type ValidationReport struct {
	Valid     bool          `json:"valid"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
}

// MetricsSnapshot is one observation of the live system
// a missing source leaves its fields zeroed and is listed in MissingSources
type MetricsSnapshot struct {
	CollectedAt           time.Time          `json:"collected_at"`
	Namespace             string             `json:"namespace,omitempty"`
	Deployment            string             `json:"deployment,omitempty"`
	Selector              map[string]string  `json:"selector,omitempty"`
	PodCPUCores           map[string]float64 `json:"pod_cpu_cores,omitempty"`
	PodMemoryBytes        map[string]float64 `json:"pod_memory_bytes,omitempty"`
	NetworkLatencySeconds float64            `json:"network_latency_seconds,omitempty"`
	ErrorRatePercent      float64            `json:"error_rate_percent,omitempty"`
	RunningPods           int                `json:"running_pods"`
	MinRequiredPods       int                `json:"min_required_pods"`
	ServiceChecked        bool               `json:"service_checked"`
	ServiceAvailable      bool               `json:"service_available"`
	MissingSources        []string           `json:"missing_sources,omitempty"`
}

// ExperimentResult is the mutable record of one experiment run
// it is owned by the orchestrator until it moves into history
type ExperimentResult struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Status            ExperimentStatus  `json:"status"`
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time,omitempty"`
	Duration          float64           `json:"duration,omitempty"`
	SteadyStateBefore *ValidationReport `json:"steady_state_before,omitempty"`
	SteadyStateAfter  *ValidationReport `json:"steady_state_after,omitempty"`
	Failures          []FailureRecord   `json:"failures,omitempty"`
	Recoveries        []RecoveryRecord  `json:"recoveries,omitempty"`
	Metrics           *MetricsSnapshot  `json:"metrics,omitempty"`
	Error             string            `json:"error,omitempty"`
	RecoveryError     string            `json:"recovery_error,omitempty"`
}
