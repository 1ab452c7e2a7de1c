package kubernetes

// ClusterInfo identifies a Kubernetes cluster and the kubeconfig context used
// to connect to it.
type ClusterInfo struct {
	// ContextName is the kubeconfig context name used to connect. Empty when
	// running in-cluster.
	ContextName string

	// Server is the Kubernetes API server URL.
	Server string

	// InCluster is true when the service account token was used.
	InCluster bool
}

// HelmRelease is the part of a Helm v3 release record the chart report needs.
type HelmRelease struct {
	Name         string
	Namespace    string
	Revision     int
	Status       string
	Chart        string
	ChartVersion string
	AppVersion   string
}
