package kubernetes

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"
)

// ErrNotFound is returned when no pod or label matches.
var ErrNotFound = errors.New("not found")

// maxLogBytes caps how much of a pod log is read.
const maxLogBytes int64 = 16 << 20

// AppNameLabel is the well-known label the platform deployments set.
const AppNameLabel = "app.kubernetes.io/name"

// LogReader reads container logs. Tests substitute a fake because the
// fake clientset returns a fixed log body.
type LogReader interface {
	FirstPodLogs(ctx context.Context, namespace, selector string) (string, error)
	NamespaceLabel(ctx context.Context, namespace, key string) (string, error)
}

// ClusterReader implements LogReader against a clientset.
type ClusterReader struct {
	Clientset k8sclient.Interface
}

// FirstPodLogs returns the log of the first pod in namespace matching the
// label selector.
func (r ClusterReader) FirstPodLogs(ctx context.Context, namespace, selector string) (string, error) {
	pods, err := r.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("list pods %q in %s: %w", selector, namespace, err)
	}
	if len(pods.Items) == 0 {
		return "", fmt.Errorf("pods %q in %s: %w", selector, namespace, ErrNotFound)
	}
	name := pods.Items[0].Name
	limit := maxLogBytes
	body, err := r.Clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{LimitBytes: &limit}).DoRaw(ctx)
	if err != nil {
		return "", fmt.Errorf("logs of pod %s/%s: %w", namespace, name, err)
	}
	return string(body), nil
}

// NamespaceLabel returns the value of label key on namespace.
func (r ClusterReader) NamespaceLabel(ctx context.Context, namespace, key string) (string, error) {
	ns, err := r.Clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get namespace %s: %w", namespace, err)
	}
	v, ok := ns.Labels[key]
	if !ok {
		return "", fmt.Errorf("label %s on namespace %s: %w", key, namespace, ErrNotFound)
	}
	return v, nil
}

// HelmReleases implements the release listing for the clientset.
func (r ClusterReader) HelmReleases(ctx context.Context) ([]HelmRelease, error) {
	return HelmReleases(ctx, r.Clientset)
}
