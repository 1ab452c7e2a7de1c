package kubernetes

import (
	"context"
	"errors"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func makePod(namespace, name string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: labels}}
}

func makeNamespace(name string, labels map[string]string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels}}
}

func TestFirstPodLogs(t *testing.T) {
	r := ClusterReader{Clientset: fake.NewSimpleClientset(
		makePod("camunda", "camunda-api-java-0", map[string]string{AppNameLabel: "camunda-api-java"}),
	)}

	logs, err := r.FirstPodLogs(context.Background(), "camunda", AppNameLabel+"=camunda-api-java")
	if err != nil {
		t.Fatalf("FirstPodLogs: %v", err)
	}
	// the fake clientset serves a fixed body for every log request
	if logs != "fake logs" {
		t.Errorf("logs = %q", logs)
	}
}

func TestFirstPodLogs_NoMatchingPod(t *testing.T) {
	r := ClusterReader{Clientset: fake.NewSimpleClientset(
		makePod("camunda", "other", map[string]string{AppNameLabel: "other"}),
		makePod("docmosis", "camunda-api-java-0", map[string]string{AppNameLabel: "camunda-api-java"}),
	)}

	_, err := r.FirstPodLogs(context.Background(), "camunda", AppNameLabel+"=camunda-api-java")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestNamespaceLabel(t *testing.T) {
	r := ClusterReader{Clientset: fake.NewSimpleClientset(
		makeNamespace("flux-system", map[string]string{"app.kubernetes.io/version": "v2.3.0"}),
		makeNamespace("bare", nil),
	)}
	ctx := context.Background()

	v, err := r.NamespaceLabel(ctx, "flux-system", "app.kubernetes.io/version")
	if err != nil || v != "v2.3.0" {
		t.Errorf("flux-system label = %q, %v", v, err)
	}
	if _, err := r.NamespaceLabel(ctx, "bare", "app.kubernetes.io/version"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing label err = %v; want ErrNotFound", err)
	}
	if _, err := r.NamespaceLabel(ctx, "absent", "x"); err == nil {
		t.Error("expected error for missing namespace")
	}
}
