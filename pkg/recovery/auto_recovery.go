package recovery

import (
	"context"
	"sort"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/telemetry"
	"github.com/qraiop/chaos-go/pkg/types"
)

const (
	defaultWatchInterval = 30 * time.Second

	// errorRateThresholdPercent is the error rate above which the
	// high-error-rate rule fires
	errorRateThresholdPercent = 5.0

	circuitBreakerAnnotation = "chaos.qraiop.io/circuit-breaker"
)

// Rule pairs a condition over a metrics snapshot with a recovery action
// rules are registered once at startup and evaluated in priority order,
// lower priority runs first
type Rule struct {
	Name       string
	Condition  func(snapshot *types.MetricsSnapshot) bool
	Action     func(ctx context.Context, snapshot *types.MetricsSnapshot) error
	Priority   int
	MaxRetries int
}

// AutoRecoverySystem continuously watches live metrics and fires recovery
// actions independently of any experiment, a malfunctioning rule never
// halts the watchdog
type AutoRecoverySystem struct {
	Clients  clients.ClientSets
	Collect  func(ctx context.Context) *types.MetricsSnapshot
	Interval time.Duration

	mu      sync.Mutex
	rules   []Rule
	stopped chan struct{}
	once    sync.Once
}

// NewAutoRecovery creates the watchdog with the default rules registered
func NewAutoRecovery(clientSets clients.ClientSets, collect func(ctx context.Context) *types.MetricsSnapshot) *AutoRecoverySystem {
	system := &AutoRecoverySystem{
		Clients:  clientSets,
		Collect:  collect,
		Interval: defaultWatchInterval,
		stopped:  make(chan struct{}),
	}
	system.registerDefaultRules()
	return system
}

func (a *AutoRecoverySystem) registerDefaultRules() {
	a.AddRule(Rule{
		Name:       "pod_crash_recovery",
		Condition:  checkPodCrash,
		Action:     a.recoverPodCrash,
		Priority:   1,
		MaxRetries: 3,
	})
	a.AddRule(Rule{
		Name:       "service_unavailable_recovery",
		Condition:  checkServiceUnavailable,
		Action:     a.recoverServiceUnavailable,
		Priority:   2,
		MaxRetries: 3,
	})
	a.AddRule(Rule{
		Name:       "high_error_rate_recovery",
		Condition:  checkHighErrorRate,
		Action:     a.recoverHighErrorRate,
		Priority:   3,
		MaxRetries: 3,
	})
}

// AddRule registers a recovery rule, keeping the rules sorted by priority
func (a *AutoRecoverySystem) AddRule(rule Rule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rules = append(a.rules, rule)
	sort.SliceStable(a.rules, func(i, j int) bool {
		return a.rules[i].Priority < a.rules[j].Priority
	})
}

// Run executes the watchdog loop until Stop is called or the context ends
// the stop check is cooperative, at the top of each iteration
func (a *AutoRecoverySystem) Run(ctx context.Context) {
	log.Infof("[Watchdog]: Auto-recovery loop started with %v interval", a.Interval)
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopped:
			log.Info("[Watchdog]: Auto-recovery loop stopped")
			return
		case <-ctx.Done():
			log.Info("[Watchdog]: Auto-recovery loop context cancelled")
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Stop signals the loop to exit at its next iteration
func (a *AutoRecoverySystem) Stop() {
	a.once.Do(func() {
		close(a.stopped)
	})
}

// Tick samples the metrics once and evaluates every rule in priority order
// every matching condition fires, multiple independent conditions may
// co-trigger on the same snapshot
func (a *AutoRecoverySystem) Tick(ctx context.Context) {
	snapshot := a.Collect(ctx)

	a.mu.Lock()
	rules := make([]Rule, len(a.rules))
	copy(rules, a.rules)
	a.mu.Unlock()

	for _, rule := range rules {
		if !rule.Condition(snapshot) {
			continue
		}
		log.Infof("[Watchdog]: Triggering recovery rule: %v", rule.Name)
		telemetry.RecordWatchdogTrigger(rule.Name)
		if err := rule.Action(ctx, snapshot); err != nil {
			log.Errorf("[Watchdog]: Recovery rule %v failed, err: %v", rule.Name, err)
		}
	}
}

func checkPodCrash(snapshot *types.MetricsSnapshot) bool {
	return snapshot.RunningPods < snapshot.MinRequiredPods
}

func checkServiceUnavailable(snapshot *types.MetricsSnapshot) bool {
	return snapshot.ServiceChecked && !snapshot.ServiceAvailable
}

func checkHighErrorRate(snapshot *types.MetricsSnapshot) bool {
	return snapshot.ErrorRatePercent > errorRateThresholdPercent
}

// recoverPodCrash scales the owning deployment up by exactly one replica
func (a *AutoRecoverySystem) recoverPodCrash(ctx context.Context, snapshot *types.MetricsSnapshot) error {
	log.Warn("[Watchdog]: Detected pod crashes, initiating recovery")

	deployment, err := a.Clients.KubeClient.AppsV1().Deployments(snapshot.Namespace).Get(ctx, snapshot.Deployment, metav1.GetOptions{})
	if err != nil {
		return err
	}

	replicas := int32(1)
	if deployment.Spec.Replicas != nil {
		replicas = *deployment.Spec.Replicas + 1
	}
	deployment.Spec.Replicas = &replicas
	if _, err := a.Clients.KubeClient.AppsV1().Deployments(snapshot.Namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return err
	}

	log.Infof("[Watchdog]: Scaled up %v to %v replicas", snapshot.Deployment, replicas)
	return nil
}

// recoverServiceUnavailable deletes the matching pods to force recreation
func (a *AutoRecoverySystem) recoverServiceUnavailable(ctx context.Context, snapshot *types.MetricsSnapshot) error {
	log.Warn("[Watchdog]: Detected service unavailability, initiating recovery")

	target := types.ExperimentTarget{Namespace: snapshot.Namespace, Selector: snapshot.Selector}
	podList, err := a.Clients.KubeClient.CoreV1().Pods(snapshot.Namespace).List(ctx, metav1.ListOptions{LabelSelector: target.LabelSelector()})
	if err != nil {
		return err
	}

	for _, pod := range podList.Items {
		log.Infof("[Watchdog]: Restarting pod %v", pod.Name)
		if err := a.Clients.KubeClient.CoreV1().Pods(snapshot.Namespace).Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// recoverHighErrorRate applies a circuit-breaker style mitigation by
// annotating the owning deployment, a mesh controller picks it up from there
func (a *AutoRecoverySystem) recoverHighErrorRate(ctx context.Context, snapshot *types.MetricsSnapshot) error {
	log.Warn("[Watchdog]: Detected high error rate, initiating recovery")

	deployment, err := a.Clients.KubeClient.AppsV1().Deployments(snapshot.Namespace).Get(ctx, snapshot.Deployment, metav1.GetOptions{})
	if err != nil {
		return err
	}

	if deployment.Annotations == nil {
		deployment.Annotations = map[string]string{}
	}
	deployment.Annotations[circuitBreakerAnnotation] = "enabled"
	if _, err := a.Clients.KubeClient.AppsV1().Deployments(snapshot.Namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return err
	}

	log.Info("[Watchdog]: Applied circuit breaker configuration")
	return nil
}
