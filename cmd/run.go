package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"

	"vvtest/internal/batch"
	"vvtest/internal/config"
	"vvtest/internal/discovery"
	"vvtest/internal/engine"
	"vvtest/internal/report"
	"vvtest/internal/resource"
	"vvtest/pkg/logging"
)

var (
	runConfigPath string
	runTestRoot   string
	runExecRoot   string
	runQuiet      bool
)

// newRunCmd creates the Cobra command that discovers, schedules, and runs a
// test suite to completion, exiting with the TestStatus bitmask.
func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run [test-root]",
		Short: "Discover and run the test suite rooted at the given directory",
		Long: `run walks the given directory for test scripts, resolves dependencies
between them, and schedules them against the local resource pool (or submits
them through the configured batch adapter) until every test reaches a
terminal status. The process exits with a bitmask describing
which outcomes occurred (diff=2, fail=4, timeout=8, notdone=16, notrun=32).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}
	c.Flags().StringVar(&runConfigPath, "config", "", "directory containing config.yaml (defaults to ~/.config/vvtest)")
	c.Flags().StringVar(&runExecRoot, "execute-root", "", "directory to stage execute directories in (defaults to the test root)")
	c.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress the live progress spinner")
	return c
}

func runRun(cmd *cobra.Command, args []string) error {
	runTestRoot = "."
	if len(args) == 1 {
		runTestRoot = args[0]
	}

	cfgPath := runConfigPath
	if cfgPath == "" {
		cfgPath = config.GetDefaultConfigPathOrPanic()
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	execRoot := runExecRoot
	if execRoot == "" {
		execRoot = runTestRoot
	}

	var liveCh <-chan logging.LogEntry
	if runQuiet || !isTerminal() {
		logging.InitForCLI(logging.LevelInfo, cmd.OutOrStdout())
	} else {
		liveCh = logging.InitForLive(0)
	}

	eng := engine.New(engine.Config{
		ExecuteRoot:  execRoot,
		TotalCores:   cfg.Resources.TotalCores,
		TotalDevices: cfg.Resources.TotalDevices,
		NodeShape:    resource.NodeShape{CoresPerNode: cfg.Resources.CoresPerNode, DevicesPerNode: cfg.Resources.DevicesPerNode},
		PreClean:     cfg.Clean.PreClean,
		PostClean:    cfg.Clean.PostClean,
		JournalPath:  cfg.JournalPath,
		PollInterval: cfg.PollInterval,
	})

	disc := &discovery.WalkDiscovery{Root: runTestRoot}
	if err := eng.LoadTests(disc); err != nil {
		return fmt.Errorf("loading tests: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logging.Info("Run", "received interrupt, shutting down gracefully...")
		eng.Stop()
		cancel()
	}()

	resultCh := make(chan int, 1)
	if cfg.Batch.Adapter != config.BatchAdapterNone {
		adapter, err := buildBatchAdapter(cfg.Batch)
		if err != nil {
			return fmt.Errorf("building batch adapter: %w", err)
		}
		bcfg := engine.BatchConfig{Adapter: adapter, CheckInterval: cfg.Batch.CheckInterval, MaxConcurrent: cfg.Batch.MaxConcurrent}
		go func() {
			code, err := eng.RunBatch(ctx, bcfg)
			if err != nil {
				logging.Error("Run", err, "batch run failed")
			}
			resultCh <- code
		}()
	} else {
		if err := eng.Start(ctx); err != nil {
			return fmt.Errorf("starting engine: %w", err)
		}
		go func() { resultCh <- eng.Wait() }()
	}

	var exitCode int
	if liveCh != nil {
		go drainLiveLog(cmd, liveCh)
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " running tests..."
		s.Start()
		exitCode = <-resultCh
		s.Stop()
	} else {
		exitCode = <-resultCh
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.FormatSummary(eng.Store().All(), exitCode))
	os.Exit(exitCode)
	return nil
}

func drainLiveLog(cmd *cobra.Command, ch <-chan logging.LogEntry) {
	for entry := range ch {
		if entry.Level >= logging.LevelWarn {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", text.FgYellow.Sprint(entry.Message))
		}
	}
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// buildBatchAdapter resolves the configured batch.Adapter kind into a
// concrete collaborator: a Slurm script submitter needs no external
// connection, a Kubernetes Job submitter needs a cluster client built from
// the ambient kubeconfig.
func buildBatchAdapter(bcfg config.BatchConfig) (batch.Adapter, error) {
	switch bcfg.Adapter {
	case config.BatchAdapterSlurm:
		return &batch.SlurmAdapter{
			CoresPerNode:   bcfg.CoresPerNode,
			DevicesPerNode: bcfg.DevicesPerNode,
			Partition:      bcfg.Slurm.Partition,
			Account:        bcfg.Slurm.Account,
			QoS:            bcfg.Slurm.QoS,
		}, nil
	case config.BatchAdapterKubernetes:
		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			clientcmd.NewDefaultClientConfigLoadingRules(), &clientcmd.ConfigOverrides{}).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig: %w", err)
		}
		return batch.NewKubernetesAdapter(restConfig, bcfg.Kubernetes.Namespace, bcfg.Kubernetes.Image)
	default:
		return nil, fmt.Errorf("unknown batch adapter %q", bcfg.Adapter)
	}
}
