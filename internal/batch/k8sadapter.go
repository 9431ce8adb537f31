package batch

import (
	"context"
	"fmt"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// KubernetesAdapter submits each batch as a Kubernetes batch/v1 Job instead
// of a Slurm-style script, using scheme-registration and a
// controller-runtime client to talk to a cluster.
type KubernetesAdapter struct {
	Namespace      string
	Image          string
	CoresPerNode   int
	DevicesPerNode int

	cl client.Client
}

// NewKubernetesAdapter builds a controller-runtime client from restConfig
// and registers the core Kubernetes types needed to manage Jobs.
func NewKubernetesAdapter(restConfig *rest.Config, namespace, image string) (*KubernetesAdapter, error) {
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("batch: register scheme: %w", err)
	}

	cl, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("batch: build kubernetes client: %w", err)
	}

	return &KubernetesAdapter{Namespace: namespace, Image: image, cl: cl}, nil
}

func (a *KubernetesAdapter) NodeShape() (int, int) {
	cpn := a.CoresPerNode
	if cpn <= 0 {
		cpn = 1
	}
	return cpn, a.DevicesPerNode
}

// WriteJobScript is a no-op for the Kubernetes adapter: the job body is
// carried as the container command rather than a shell script on disk.
func (a *KubernetesAdapter) WriteJobScript(job *Job, cmd string) error {
	job.SchedulerJobID = "" // populated on Submit
	job.ScriptPath = cmd    // reuse the field to stash the command line
	return nil
}

// Submit creates a batch/v1 Job named after the batch id, requesting
// job.NumProcs CPU and running cmd (stashed by WriteJobScript) as the
// container command.
func (a *KubernetesAdapter) Submit(ctx context.Context, job *Job) (string, error) {
	name := "vvtest-batch-" + job.ID.String()

	k8sJob := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: a.Namespace,
			Labels:    map[string]string{"app": "vvtest-batch"},
		},
		Spec: batchv1.JobSpec{
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:    "vvtest",
							Image:   a.Image,
							Command: []string{"/bin/sh", "-c", job.ScriptPath},
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceCPU: *resource.NewQuantity(int64(job.NumProcs), resource.DecimalSI),
								},
							},
						},
					},
				},
			},
		},
	}

	if err := a.cl.Create(ctx, k8sJob); err != nil {
		return "", fmt.Errorf("batch: create job %s: %w", name, err)
	}
	return name, nil
}

// Query reports each named Job as in-queue until it has completed or
// failed.
func (a *KubernetesAdapter) Query(ctx context.Context, ids []string) (map[string]JobStatus, error) {
	result := make(map[string]JobStatus, len(ids))
	for _, name := range ids {
		var k8sJob batchv1.Job
		err := a.cl.Get(ctx, client.ObjectKey{Namespace: a.Namespace, Name: name}, &k8sJob)
		if err != nil {
			result[name] = JobStatus{InQueue: false}
			continue
		}
		result[name] = JobStatus{InQueue: k8sJob.Status.Succeeded == 0 && k8sJob.Status.Failed == 0}
	}
	return result, nil
}

// Cancel deletes every named Job.
func (a *KubernetesAdapter) Cancel(ctx context.Context, ids []string) error {
	var errs []string
	for _, name := range ids {
		k8sJob := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: a.Namespace}}
		if err := a.cl.Delete(ctx, k8sJob); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("batch: cancel failed for some jobs: %s", strings.Join(errs, "; "))
	}
	return nil
}
