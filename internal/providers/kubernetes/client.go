package kubernetes

import k8sclient "k8s.io/client-go/kubernetes"

// KubeClientProvider creates kubernetes clientsets for named kubeconfig contexts.
// It abstracts kubeconfig loading so callers and tests can inject any clientset
// without touching the filesystem.
type KubeClientProvider interface {
	// ClientsetForContext returns a clientset and the resolved ClusterInfo for
	// the given kubeconfig context. Pass an empty string to use the current
	// context, or the in-cluster service account when no kubeconfig is usable.
	ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error)
}

// DefaultKubeClientProvider loads the kubeconfig at KubeconfigPath, or
// $KUBECONFIG / ~/.kube/config when empty, and falls back to the in-cluster
// config.
type DefaultKubeClientProvider struct {
	KubeconfigPath string
}

// NewDefaultKubeClientProvider returns a provider backed by the given
// kubeconfig path (empty = system default).
func NewDefaultKubeClientProvider(kubeconfigPath string) *DefaultKubeClientProvider {
	return &DefaultKubeClientProvider{KubeconfigPath: kubeconfigPath}
}

// ClientsetForContext implements KubeClientProvider.
func (p *DefaultKubeClientProvider) ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error) {
	path := p.KubeconfigPath
	if path == "" {
		path = resolveKubeconfigPath()
	}
	return LoadClientsetOrInCluster(path, contextName)
}
