package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	"github.com/qraiop/chaos-go/pkg/clients"
)

func runningPod(name string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels:    labels,
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func podMetrics(name string, labels map[string]string, cpu, memory string) *v1beta1.PodMetrics {
	return &v1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels:    labels,
		},
		Containers: []v1beta1.ContainerMetrics{
			{
				Name: "app",
				Usage: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse(cpu),
					corev1.ResourceMemory: resource.MustParse(memory),
				},
			},
		},
	}
}

func TestCollectFullSnapshot(t *testing.T) {
	labels := map[string]string{"app": "web"}

	health := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer health.Close()

	prometheus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		assert.Equal(t, `sum(rate(http_requests_total{status=~"5.."}[1m]))`, r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"2.75"]}]}}`))
	}))
	defer prometheus.Close()

	// the generated metrics fake reads from GVR metrics.k8s.io/v1beta1 "pods",
	// but NewSimpleClientset stores objects under the guessed "podmetricses",
	// so fixtures must be seeded into the tracker under the GVR directly
	metricsClient := metricsfake.NewSimpleClientset()
	podMetricsGVR := v1beta1.SchemeGroupVersion.WithResource("pods")
	for _, m := range []*v1beta1.PodMetrics{
		podMetrics("web-0", labels, "250m", "128Mi"),
		podMetrics("web-1", labels, "500m", "256Mi"),
	} {
		require.NoError(t, metricsClient.Tracker().Create(podMetricsGVR, m, m.Namespace))
	}

	c := &Collector{
		Clients: clients.ClientSets{
			KubeClient: fake.NewSimpleClientset(
				runningPod("web-0", labels),
				runningPod("web-1", labels),
			),
			MetricsClient: metricsClient,
		},
		Namespace:      "default",
		Deployment:     "web",
		Selector:       labels,
		MinReplicas:    2,
		HealthURL:      health.URL,
		PrometheusURL:  prometheus.URL,
		ErrorRateQuery: `sum(rate(http_requests_total{status=~"5.."}[1m]))`,
		HTTPTimeout:    2 * time.Second,
	}

	snapshot := c.Collect(context.Background())
	require.NotNil(t, snapshot)

	assert.Empty(t, snapshot.MissingSources)
	assert.Equal(t, 2, snapshot.RunningPods)
	assert.Equal(t, 2, snapshot.MinRequiredPods)
	assert.True(t, snapshot.ServiceChecked)
	assert.True(t, snapshot.ServiceAvailable)
	assert.Greater(t, snapshot.NetworkLatencySeconds, 0.0)
	assert.Equal(t, 2.75, snapshot.ErrorRatePercent)

	assert.InDelta(t, 0.25, snapshot.PodCPUCores["web-0"], 0.001)
	assert.InDelta(t, 0.5, snapshot.PodCPUCores["web-1"], 0.001)
	assert.InDelta(t, 128*1024*1024, snapshot.PodMemoryBytes["web-0"], 1)
}

func TestCollectWithoutOptionalSources(t *testing.T) {
	c := &Collector{
		Clients:   clients.ClientSets{KubeClient: fake.NewSimpleClientset()},
		Namespace: "default",
		Selector:  map[string]string{"app": "web"},
	}

	snapshot := c.Collect(context.Background())
	require.NotNil(t, snapshot)

	assert.Equal(t, 0, snapshot.RunningPods)
	assert.False(t, snapshot.ServiceChecked)
	assert.ElementsMatch(t, []string{"resource_usage", "network_latency", "error_rate"}, snapshot.MissingSources)
}

func TestCollectDegradedService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := &Collector{
		Clients:   clients.ClientSets{KubeClient: fake.NewSimpleClientset()},
		Namespace: "default",
		HealthURL: server.URL,
	}

	snapshot := c.Collect(context.Background())
	assert.True(t, snapshot.ServiceChecked)
	assert.False(t, snapshot.ServiceAvailable)
}

func TestCollectUnreachableService(t *testing.T) {
	c := &Collector{
		Clients:     clients.ClientSets{KubeClient: fake.NewSimpleClientset()},
		Namespace:   "default",
		HealthURL:   "http://127.0.0.1:1/health",
		HTTPTimeout: time.Second,
	}

	snapshot := c.Collect(context.Background())
	assert.True(t, snapshot.ServiceChecked)
	assert.False(t, snapshot.ServiceAvailable)
	assert.Contains(t, snapshot.MissingSources, "network_latency")
}

func TestCollectErrorRateEmptyResult(t *testing.T) {
	prometheus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
	}))
	defer prometheus.Close()

	c := &Collector{
		Clients:       clients.ClientSets{KubeClient: fake.NewSimpleClientset()},
		Namespace:     "default",
		PrometheusURL: prometheus.URL,
	}

	snapshot := c.Collect(context.Background())
	assert.Zero(t, snapshot.ErrorRatePercent)
	assert.Contains(t, snapshot.MissingSources, "error_rate")
}
