package environment

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/qraiop/chaos-go/pkg/types"
)

// Settings holds all the tunables of the orchestrator daemon
type Settings struct {
	ListenAddr          string            `yaml:"listen_addr"`
	WatchInterval       int               `yaml:"watch_interval"`
	RecoveryTimeout     int               `yaml:"recovery_timeout"`
	RecoveryDelay       int               `yaml:"recovery_delay"`
	HTTPTimeout         int               `yaml:"http_timeout"`
	OTELEndpoint        string            `yaml:"otel_endpoint"`
	WatchNamespace      string            `yaml:"watch_namespace"`
	WatchDeployment     string            `yaml:"watch_deployment"`
	WatchSelector       map[string]string `yaml:"watch_selector"`
	WatchMinReplicas    int               `yaml:"watch_min_replicas"`
	HealthURL           string            `yaml:"health_url"`
	PrometheusURL       string            `yaml:"prometheus_url"`
	ErrorRateQuery      string            `yaml:"error_rate_query"`
	DisableAutoRecovery bool              `yaml:"disable_auto_recovery"`
}

//GetENV fetches all the env variables of the orchestrator daemon
func GetENV() *Settings {
	settings := Settings{}
	settings.ListenAddr = Getenv("LISTEN_ADDR", ":8080")
	settings.WatchInterval, _ = strconv.Atoi(Getenv("WATCH_INTERVAL", "30"))
	settings.RecoveryTimeout, _ = strconv.Atoi(Getenv("RECOVERY_TIMEOUT", "300"))
	settings.RecoveryDelay, _ = strconv.Atoi(Getenv("RECOVERY_DELAY", "5"))
	settings.HTTPTimeout, _ = strconv.Atoi(Getenv("HTTP_TIMEOUT", "5"))
	settings.OTELEndpoint = Getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	settings.WatchNamespace = Getenv("WATCH_NAMESPACE", "default")
	settings.WatchDeployment = Getenv("WATCH_DEPLOYMENT", "web")
	settings.WatchMinReplicas, _ = strconv.Atoi(Getenv("WATCH_MIN_REPLICAS", "1"))
	settings.HealthURL = Getenv("HEALTH_URL", "")
	settings.PrometheusURL = Getenv("PROMETHEUS_URL", "")
	settings.ErrorRateQuery = Getenv("ERROR_RATE_QUERY", `sum(rate(http_requests_total{status=~"5.."}[1m])) / sum(rate(http_requests_total[1m])) * 100`)
	settings.DisableAutoRecovery, _ = strconv.ParseBool(Getenv("DISABLE_AUTO_RECOVERY", "false"))
	if selector := Getenv("WATCH_SELECTOR", ""); selector != "" {
		settings.WatchSelector = map[string]string{"app": selector}
	}
	return &settings
}

// LoadFile overlays the settings from a yaml config file
func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to read the config file, err: %v", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return errors.Wrapf(err, "Unable to parse the config file, err: %v", err)
	}
	return nil
}

// WatchTarget derives the experiment target watched by the auto-recovery loop
func (s *Settings) WatchTarget() types.ExperimentTarget {
	return types.ExperimentTarget{
		Namespace:  s.WatchNamespace,
		Selector:   s.WatchSelector,
		Percentage: 100,
	}
}

// Getenv fetch the env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}
