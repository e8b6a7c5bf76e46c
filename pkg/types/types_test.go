package types

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
)

func TestExperimentConfigValidate(t *testing.T) {
	valid := ExperimentConfig{
		Name:        "pod-kill-default",
		FailureType: PodKill,
		Target: ExperimentTarget{
			Namespace:  "default",
			Selector:   map[string]string{"app": "web"},
			Percentage: 50,
		},
		Duration: 30,
	}

	tests := []struct {
		name      string
		mutate    func(c *ExperimentConfig)
		expectErr bool
	}{
		{"valid config", func(c *ExperimentConfig) {}, false},
		{"missing name", func(c *ExperimentConfig) { c.Name = "" }, true},
		{"missing failure type", func(c *ExperimentConfig) { c.FailureType = "" }, true},
		{"missing namespace", func(c *ExperimentConfig) { c.Target.Namespace = "" }, true},
		{"percentage below range", func(c *ExperimentConfig) { c.Target.Percentage = 0 }, true},
		{"percentage above range", func(c *ExperimentConfig) { c.Target.Percentage = 101 }, true},
		{"negative duration", func(c *ExperimentConfig) { c.Duration = -1 }, true},
		{"zero duration", func(c *ExperimentConfig) { c.Duration = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := config.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLabelSelectorIsDeterministic(t *testing.T) {
	target := ExperimentTarget{
		Namespace: "default",
		Selector:  map[string]string{"app": "web", "tier": "frontend", "env": "prod"},
	}

	first := target.LabelSelector()
	assert.Equal(t, "app=web,env=prod,tier=frontend", first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, target.LabelSelector())
	}
}

func TestLabelSelectorEmpty(t *testing.T) {
	target := ExperimentTarget{Namespace: "default"}
	assert.Equal(t, "", target.LabelSelector())
}

func FuzzLabelSelector(f *testing.F) {
	f.Add([]byte("app=web"))

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		target := &ExperimentTarget{}
		if err := fuzzConsumer.GenerateStruct(target); err != nil {
			return
		}
		first := target.LabelSelector()
		assert.Equal(t, first, target.LabelSelector())
		for key := range target.Selector {
			assert.True(t, strings.Contains(first, key))
		}
	})
}
