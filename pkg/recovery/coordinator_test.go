package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/qraiop/chaos-go/pkg/cerrors"
	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/types"
)

type fakeShaper struct {
	removeCalls int
	err         error
}

func (s *fakeShaper) ApplyDelay(ctx context.Context, target types.ExperimentTarget, delayMs, jitterMs int) error {
	return s.err
}

func (s *fakeShaper) ApplyPartition(ctx context.Context, target types.ExperimentTarget, blockIngress, blockEgress bool) error {
	return s.err
}

func (s *fakeShaper) Remove(ctx context.Context, target types.ExperimentTarget) error {
	s.removeCalls++
	return s.err
}

type fakeStress struct {
	stopCalls int
	err       error
}

func (s *fakeStress) Start(ctx context.Context, kind types.FailureType, target types.ExperimentTarget, params map[string]interface{}) error {
	return s.err
}

func (s *fakeStress) Stop(ctx context.Context, target types.ExperimentTarget) error {
	s.stopCalls++
	return s.err
}

func runningPod(name, namespace string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func newTestCoordinator(objects ...runtime.Object) (*Coordinator, *fakeShaper, *fakeStress) {
	shaper := &fakeShaper{}
	stress := &fakeStress{}
	c := New(clients.ClientSets{KubeClient: fake.NewSimpleClientset(objects...)}, shaper, stress)
	c.Timeout = 1
	c.Delay = 1
	return c, shaper, stress
}

func podKillRecord(killed ...string) *types.FailureRecord {
	return &types.FailureRecord{
		Kind: types.PodKill,
		Target: types.ExperimentTarget{
			Namespace: "default",
			Selector:  map[string]string{"app": "web"},
		},
		Timestamp:  time.Now(),
		KilledPods: killed,
	}
}

func TestRecoverPodKill(t *testing.T) {
	labels := map[string]string{"app": "web"}
	c, _, _ := newTestCoordinator(
		runningPod("web-replacement-0", "default", labels),
		runningPod("web-replacement-1", "default", labels),
	)

	record, err := c.Recover(context.Background(), podKillRecord("web-0", "web-1"))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "pod_recovery", record.Kind)
	assert.Equal(t, types.RecoverySucceeded, record.Status)
	assert.Len(t, record.RecoveredPods, 2)
}

func TestRecoverPodKillWaitsForReadiness(t *testing.T) {
	// the replacement is running but its ready condition never turns true
	replacement := runningPod("web-replacement-0", "default", map[string]string{"app": "web"})
	replacement.Status.Conditions = []corev1.PodCondition{
		{Type: corev1.PodReady, Status: corev1.ConditionFalse},
	}
	c, _, _ := newTestCoordinator(replacement)

	record, err := c.Recover(context.Background(), podKillRecord("web-0"))
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeRecoveryTimeout, cerrors.GetErrorType(err))
	require.NotNil(t, record)
	assert.Equal(t, types.RecoveryFailed, record.Status)
	assert.Contains(t, record.Error, "not yet in ready state")
}

func TestRecoverPodKillTimeout(t *testing.T) {
	// only one replacement running, two expected
	c, _, _ := newTestCoordinator(runningPod("web-replacement-0", "default", map[string]string{"app": "web"}))

	record, err := c.Recover(context.Background(), podKillRecord("web-0", "web-1"))
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeRecoveryTimeout, cerrors.GetErrorType(err))
	require.NotNil(t, record)
	assert.Equal(t, types.RecoveryFailed, record.Status)
	assert.Contains(t, record.Error, "1 of 2 pods are running")
}

func TestRecoverNetworkRemovesRules(t *testing.T) {
	c, shaper, _ := newTestCoordinator()

	for _, kind := range []types.FailureType{types.NetworkDelay, types.NetworkPartition} {
		record, err := c.Recover(context.Background(), &types.FailureRecord{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, "network_rule_removal", record.Kind)
		assert.Equal(t, types.RecoverySucceeded, record.Status)
	}
	assert.Equal(t, 2, shaper.removeCalls)
}

func TestRecoverNetworkFailureIsRecordedNotEscalated(t *testing.T) {
	c, shaper, _ := newTestCoordinator()
	shaper.err = errors.Errorf("node unreachable")

	record, err := c.Recover(context.Background(), &types.FailureRecord{Kind: types.NetworkDelay})
	require.NoError(t, err)
	assert.Equal(t, types.RecoveryFailed, record.Status)
	assert.Equal(t, "node unreachable", record.Error)
}

func TestRecoverStress(t *testing.T) {
	c, _, stress := newTestCoordinator()

	for _, kind := range []types.FailureType{types.CPUStress, types.MemoryStress} {
		record, err := c.Recover(context.Background(), &types.FailureRecord{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, "stress_termination", record.Kind)
		assert.Equal(t, types.RecoverySucceeded, record.Status)
	}
	assert.Equal(t, 2, stress.stopCalls)
}

func TestRecoverUnknownKindIsTypedNoOp(t *testing.T) {
	c, _, _ := newTestCoordinator()

	record, err := c.Recover(context.Background(), &types.FailureRecord{Kind: types.DiskFill})
	require.NoError(t, err)
	assert.Equal(t, types.RecoveryNoAction, record.Kind)
	assert.Equal(t, types.RecoverySucceeded, record.Status)
	assert.Contains(t, record.Details, "disk-fill")
}
