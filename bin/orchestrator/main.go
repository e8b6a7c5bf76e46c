package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kyokomi/emoji"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/qraiop/chaos-go/pkg/api"
	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/collector"
	"github.com/qraiop/chaos-go/pkg/environment"
	"github.com/qraiop/chaos-go/pkg/injector"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/orchestrator"
	"github.com/qraiop/chaos-go/pkg/recovery"
	"github.com/qraiop/chaos-go/pkg/scenarios"
	"github.com/qraiop/chaos-go/pkg/steadystate"
	"github.com/qraiop/chaos-go/pkg/telemetry"
	"github.com/qraiop/chaos-go/pkg/types"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "chaos-orchestrator",
		Short: "Chaos experiment orchestrator with steady-state validation and auto-recovery",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to the yaml config file")

	root.AddCommand(serveCommand())
	root.AddCommand(runCommand())

	if err := root.Execute(); err != nil {
		log.Fatalf("Unable to execute the command, err: %v", err)
	}
}

// buildStack wires the orchestrator and its collaborators from the settings
func buildStack(settings *environment.Settings) (*orchestrator.Orchestrator, *recovery.AutoRecoverySystem, error) {
	clientSets := clients.ClientSets{}
	if err := clientSets.GenerateClientSetFromKubeConfig(); err != nil {
		return nil, nil, err
	}

	metricsCollector := &collector.Collector{
		Clients:        clientSets,
		Namespace:      settings.WatchNamespace,
		Deployment:     settings.WatchDeployment,
		Selector:       settings.WatchSelector,
		MinReplicas:    settings.WatchMinReplicas,
		HealthURL:      settings.HealthURL,
		PrometheusURL:  settings.PrometheusURL,
		ErrorRateQuery: settings.ErrorRateQuery,
		HTTPTimeout:    time.Duration(settings.HTTPTimeout) * time.Second,
	}
	collect := func(ctx context.Context) *types.MetricsSnapshot {
		return metricsCollector.Collect(ctx)
	}

	validator := steadystate.New(clientSets, func(ctx context.Context) (*types.MetricsSnapshot, error) {
		return metricsCollector.Collect(ctx), nil
	})
	validator.HTTPTimeout = time.Duration(settings.HTTPTimeout) * time.Second

	inject := injector.New(clientSets, nil, nil)
	recoverer := recovery.New(clientSets, inject.Shaper, inject.Stress)
	recoverer.Timeout = settings.RecoveryTimeout
	recoverer.Delay = settings.RecoveryDelay

	orc := orchestrator.New(clientSets, inject, validator, recoverer, collect)

	watchdog := recovery.NewAutoRecovery(clientSets, collect)
	watchdog.Interval = time.Duration(settings.WatchInterval) * time.Second

	return orc, watchdog, nil
}

func loadSettings() (*environment.Settings, error) {
	settings := environment.GetENV()
	if configFile != "" {
		if err := settings.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

// serveCommand runs the api server with the auto-recovery watchdog
func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the experiment submission API and run the auto-recovery watchdog",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if settings.OTELEndpoint != "" {
				shutdown, err := telemetry.InitOTelSDK(ctx, settings.OTELEndpoint)
				if err != nil {
					log.Errorf("Unable to initialise the otel sdk, err: %v", err)
				} else {
					defer shutdown(context.Background())
				}
			}

			orc, watchdog, err := buildStack(settings)
			if err != nil {
				return err
			}

			if !settings.DisableAutoRecovery {
				go watchdog.Run(ctx)
			}

			server := api.NewServer(settings.ListenAddr, orc)
			go func() {
				if err := server.Start(); err != nil {
					log.Fatalf("Unable to start the api server, err: %v", err)
				}
			}()

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			<-signals

			log.Info("[Shutdown]: Stopping the watchdog and the api server")
			watchdog.Stop()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

// runCommand executes a single experiment from a file or a scenario preset
func runCommand() *cobra.Command {
	var (
		file      string
		scenario  string
		namespace string
		appLabel  string
		delayMs   int
		duration  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single chaos experiment to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			orc, _, err := buildStack(settings)
			if err != nil {
				return err
			}

			config, err := experimentConfig(file, scenario, namespace, appLabel, delayMs, duration)
			if err != nil {
				return err
			}

			result, err := orc.Run(context.Background(), config)
			if err != nil {
				log.Errorf("Experiment failed, err: %v", err)
			}
			if result != nil {
				switch result.Status {
				case types.StatusCompleted:
					log.Info(emoji.Sprintf("[Summary]: %v experiment %v :thumbsup:", result.Name, result.Status))
				default:
					log.Info(emoji.Sprintf("[Summary]: %v experiment %v :thumbsdown:", result.Name, result.Status))
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a yaml experiment config")
	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario preset: network-delay or network-partition")
	cmd.Flags().StringVar(&namespace, "namespace", "default", "target namespace for scenario presets")
	cmd.Flags().StringVar(&appLabel, "app", "web", "app label value for scenario presets")
	cmd.Flags().IntVar(&delayMs, "delay-ms", 100, "network delay for the network-delay preset")
	cmd.Flags().IntVar(&duration, "duration", 60, "chaos duration in seconds for scenario presets")
	return cmd
}

func experimentConfig(file, scenario, namespace, appLabel string, delayMs, duration int) (types.ExperimentConfig, error) {
	var config types.ExperimentConfig
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, err
		}
	case scenario == "network-partition":
		config = scenarios.NetworkPartition(namespace, map[string]string{"app": appLabel}, nil, duration)
	default:
		config = scenarios.NetworkDelay(namespace, map[string]string{"app": appLabel}, delayMs, duration)
	}
	return config, nil
}
