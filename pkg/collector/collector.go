package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/status"
	"github.com/qraiop/chaos-go/pkg/types"
)

// Collector samples the live system state into a metrics snapshot
// each source is queried independently, a failing source yields a
// partial snapshot instead of a hard failure
type Collector struct {
	Clients        clients.ClientSets
	Namespace      string
	Deployment     string
	Selector       map[string]string
	MinReplicas    int
	HealthURL      string
	PrometheusURL  string
	ErrorRateQuery string
	HTTPTimeout    time.Duration
}

// Collect gathers cpu, memory, network latency and error rate observations
func (c *Collector) Collect(ctx context.Context) *types.MetricsSnapshot {
	snapshot := &types.MetricsSnapshot{
		CollectedAt:     time.Now(),
		Namespace:       c.Namespace,
		Deployment:      c.Deployment,
		Selector:        c.Selector,
		MinRequiredPods: c.MinReplicas,
	}

	c.collectPodHealth(ctx, snapshot)
	c.collectResourceUsage(ctx, snapshot)
	c.collectLatency(ctx, snapshot)
	c.collectErrorRate(ctx, snapshot)

	if len(snapshot.MissingSources) > 0 {
		log.Warnf("[Metrics]: Partial snapshot, missing sources: %v", snapshot.MissingSources)
	}
	return snapshot
}

func (c *Collector) collectPodHealth(ctx context.Context, snapshot *types.MetricsSnapshot) {
	target := types.ExperimentTarget{Namespace: c.Namespace, Selector: c.Selector}
	count, _, err := status.RunningPodCount(ctx, c.Namespace, target.LabelSelector(), c.Clients)
	if err != nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "pod_health")
		return
	}
	snapshot.RunningPods = count
}

func (c *Collector) collectResourceUsage(ctx context.Context, snapshot *types.MetricsSnapshot) {
	if c.Clients.MetricsClient == nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "resource_usage")
		return
	}
	target := types.ExperimentTarget{Namespace: c.Namespace, Selector: c.Selector}
	metricsList, err := c.Clients.MetricsClient.MetricsV1beta1().PodMetricses(c.Namespace).List(ctx, metav1.ListOptions{LabelSelector: target.LabelSelector()})
	if err != nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "resource_usage")
		return
	}

	snapshot.PodCPUCores = map[string]float64{}
	snapshot.PodMemoryBytes = map[string]float64{}
	for _, podMetrics := range metricsList.Items {
		var cpu, memory float64
		for _, container := range podMetrics.Containers {
			cpu += container.Usage.Cpu().AsApproximateFloat64()
			memory += container.Usage.Memory().AsApproximateFloat64()
		}
		snapshot.PodCPUCores[podMetrics.Name] = cpu
		snapshot.PodMemoryBytes[podMetrics.Name] = memory
	}
}

// collectLatency times a health endpoint GET, it doubles as the
// service availability observation of the snapshot
func (c *Collector) collectLatency(ctx context.Context, snapshot *types.MetricsSnapshot) {
	if c.HealthURL == "" {
		snapshot.MissingSources = append(snapshot.MissingSources, "network_latency")
		return
	}

	client := &http.Client{Timeout: c.httpTimeout()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL, nil)
	if err != nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "network_latency")
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	snapshot.ServiceChecked = true
	if err != nil {
		snapshot.ServiceAvailable = false
		snapshot.MissingSources = append(snapshot.MissingSources, "network_latency")
		return
	}
	defer resp.Body.Close()
	snapshot.NetworkLatencySeconds = time.Since(start).Seconds()
	snapshot.ServiceAvailable = resp.StatusCode < http.StatusInternalServerError
}

// collectErrorRate runs the configured instant query against a
// prometheus-compatible endpoint
func (c *Collector) collectErrorRate(ctx context.Context, snapshot *types.MetricsSnapshot) {
	if c.PrometheusURL == "" {
		snapshot.MissingSources = append(snapshot.MissingSources, "error_rate")
		return
	}

	queryURL := c.PrometheusURL + "/api/v1/query?query=" + url.QueryEscape(c.ErrorRateQuery)
	client := &http.Client{Timeout: c.httpTimeout()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "error_rate")
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "error_rate")
		return
	}
	defer resp.Body.Close()

	value, err := parseInstantQuery(resp)
	if err != nil {
		snapshot.MissingSources = append(snapshot.MissingSources, "error_rate")
		return
	}
	snapshot.ErrorRatePercent = value
}

func (c *Collector) httpTimeout() time.Duration {
	if c.HTTPTimeout > 0 {
		return c.HTTPTimeout
	}
	return 5 * time.Second
}

// instantQueryResponse is the subset of the prometheus query API response
// needed to read a single scalar-like vector result
type instantQueryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Value []interface{} `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

func parseInstantQuery(resp *http.Response) (float64, error) {
	var decoded instantQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, err
	}
	if decoded.Status != "success" || len(decoded.Data.Result) == 0 || len(decoded.Data.Result[0].Value) < 2 {
		return 0, errEmptyResult
	}
	raw, ok := decoded.Data.Result[0].Value[1].(string)
	if !ok {
		return 0, errEmptyResult
	}
	return strconv.ParseFloat(raw, 64)
}
