package config

import "time"

// BatchAdapterKind selects which concrete batch.Adapter a run wires up.
type BatchAdapterKind string

const (
	BatchAdapterNone       BatchAdapterKind = ""
	BatchAdapterSlurm      BatchAdapterKind = "slurm"
	BatchAdapterKubernetes BatchAdapterKind = "kubernetes"
)

// SlurmConfig configures the Slurm batch adapter.
type SlurmConfig struct {
	Partition string `yaml:"partition,omitempty"`
	Account   string `yaml:"account,omitempty"`
	QoS       string `yaml:"qos,omitempty"`
}

// KubernetesConfig configures the Kubernetes Job batch adapter.
type KubernetesConfig struct {
	Namespace string `yaml:"namespace,omitempty"`
	Image     string `yaml:"image,omitempty"`
}

// BatchConfig holds settings for batch-mode execution.
type BatchConfig struct {
	Adapter        BatchAdapterKind `yaml:"adapter,omitempty"`
	CoresPerNode   int              `yaml:"coresPerNode,omitempty"`
	DevicesPerNode int              `yaml:"devicesPerNode,omitempty"`
	MaxConcurrent  int              `yaml:"maxConcurrent,omitempty"`
	CheckInterval  time.Duration    `yaml:"checkInterval,omitempty"`
	CheckTimeout   time.Duration    `yaml:"checkTimeout,omitempty"`
	MaxTimeout     time.Duration    `yaml:"maxTimeout,omitempty"`
	Slurm          SlurmConfig      `yaml:"slurm,omitempty"`
	Kubernetes     KubernetesConfig `yaml:"kubernetes,omitempty"`
}

// ResourceConfig describes the local machine's resource pool.
type ResourceConfig struct {
	TotalCores     int `yaml:"totalCores,omitempty"`
	TotalDevices   int `yaml:"totalDevices,omitempty"`
	CoresPerNode   int `yaml:"coresPerNode,omitempty"`
	DevicesPerNode int `yaml:"devicesPerNode,omitempty"`
}

// CleanConfig toggles pre/post-clean behavior around a test's execute
// directory.
type CleanConfig struct {
	PreClean  bool `yaml:"preClean"`
	PostClean bool `yaml:"postClean"`
}

// RunConfig is the top-level configuration for a vvtest run, loaded from
// config.yaml.
type RunConfig struct {
	Resources    ResourceConfig `yaml:"resources,omitempty"`
	Batch        BatchConfig    `yaml:"batch,omitempty"`
	Clean        CleanConfig    `yaml:"clean,omitempty"`
	PollInterval time.Duration  `yaml:"pollInterval,omitempty"`
	JournalPath  string         `yaml:"journalPath,omitempty"`
}

// GetDefaultConfig returns the configuration used when no config.yaml is
// present.
func GetDefaultConfig() RunConfig {
	return RunConfig{
		Resources: ResourceConfig{
			TotalCores:     4,
			CoresPerNode:   4,
			DevicesPerNode: 0,
		},
		Batch: BatchConfig{
			MaxConcurrent: 4,
			CheckInterval: 30 * time.Second,
			CheckTimeout:  5 * time.Second,
			MaxTimeout:    0, // 0 means "no cap": the queue time is not clamped
		},
		Clean: CleanConfig{
			PreClean:  true,
			PostClean: true,
		},
		PollInterval: time.Second,
		JournalPath:  "results.journal",
	}
}
