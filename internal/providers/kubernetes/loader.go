package kubernetes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// resolveKubeconfigPath returns the effective kubeconfig file path.
// Prefers $KUBECONFIG if set; falls back to ~/.kube/config.
func resolveKubeconfigPath() string {
	if path := os.Getenv("KUBECONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}

// LoadClientset builds a kubernetes clientset from the kubeconfig file at path,
// targeting the given context (empty = current context).
func LoadClientset(kubeconfigPath, contextName string) (k8sclient.Interface, ClusterInfo, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{
		ExplicitPath: kubeconfigPath,
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}

	cfg := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	rawCfg, err := cfg.RawConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("load kubeconfig %q: %w", kubeconfigPath, err)
	}

	effectiveContext := rawCfg.CurrentContext
	if contextName != "" {
		effectiveContext = contextName
	}

	server := ""
	if ctx, ok := rawCfg.Contexts[effectiveContext]; ok {
		if cluster, ok := rawCfg.Clusters[ctx.Cluster]; ok {
			server = cluster.Server
		}
	}

	restCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build REST config for context %q: %w", effectiveContext, err)
	}

	clientset, err := k8sclient.NewForConfig(restCfg)
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build clientset for context %q: %w", effectiveContext, err)
	}

	return clientset, ClusterInfo{
		ContextName: effectiveContext,
		Server:      server,
	}, nil
}

// LoadInCluster builds a clientset from the service account mounted into
// the pod.
func LoadInCluster() (k8sclient.Interface, ClusterInfo, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("load in-cluster config: %w", err)
	}
	clientset, err := k8sclient.NewForConfig(restCfg)
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build in-cluster clientset: %w", err)
	}
	return clientset, ClusterInfo{Server: restCfg.Host, InCluster: true}, nil
}

// LoadClientsetOrInCluster tries the kubeconfig first and falls back to the
// in-cluster service account, so the same binary runs on a laptop and as a
// CronJob. Both errors are returned when neither works.
func LoadClientsetOrInCluster(kubeconfigPath, contextName string) (k8sclient.Interface, ClusterInfo, error) {
	cs, info, kubeErr := LoadClientset(kubeconfigPath, contextName)
	if kubeErr == nil {
		return cs, info, nil
	}
	cs, info, inErr := LoadInCluster()
	if inErr == nil {
		return cs, info, nil
	}
	return nil, ClusterInfo{}, errors.Join(kubeErr, inErr)
}
