package kubernetes

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"
)

// helmReleaseSelector matches the secrets the Helm v3 storage driver writes.
const helmReleaseSelector = "owner=helm"

const statusDeployed = "deployed"

var gzipMagic = []byte{0x1f, 0x8b, 0x08}

// releaseRecord mirrors the fields of Helm's stored release JSON we read.
type releaseRecord struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Version   int    `json:"version"`
	Info      struct {
		Status string `json:"status"`
	} `json:"info"`
	Chart struct {
		Metadata struct {
			Name       string `json:"name"`
			Version    string `json:"version"`
			AppVersion string `json:"appVersion"`
		} `json:"metadata"`
	} `json:"chart"`
}

// HelmReleases lists Helm release secrets in every namespace and returns the
// newest deployed revision of each release, sorted by namespace then name.
func HelmReleases(ctx context.Context, clientset k8sclient.Interface) ([]HelmRelease, error) {
	list, err := clientset.CoreV1().Secrets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: helmReleaseSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("list helm release secrets: %w", err)
	}

	newest := map[[2]string]HelmRelease{}
	for _, s := range list.Items {
		raw, ok := s.Data["release"]
		if !ok {
			continue
		}
		rel, err := DecodeRelease(raw)
		if err != nil {
			return nil, fmt.Errorf("decode secret %s/%s: %w", s.Namespace, s.Name, err)
		}
		if rel.Status != statusDeployed {
			continue
		}
		if rel.Namespace == "" {
			rel.Namespace = s.Namespace
		}
		key := [2]string{rel.Namespace, rel.Name}
		if cur, ok := newest[key]; ok && cur.Revision >= rel.Revision {
			continue
		}
		newest[key] = rel
	}

	out := make([]HelmRelease, 0, len(newest))
	for _, r := range newest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DecodeRelease decodes the "release" value of a Helm secret: base64 text of
// a (usually gzipped) JSON document.
func DecodeRelease(data []byte) (HelmRelease, error) {
	b := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(b, data)
	if err != nil {
		return HelmRelease{}, fmt.Errorf("base64: %w", err)
	}
	b = b[:n]

	if bytes.HasPrefix(b, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return HelmRelease{}, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		if b, err = io.ReadAll(zr); err != nil {
			return HelmRelease{}, fmt.Errorf("gzip: %w", err)
		}
	}

	var rec releaseRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return HelmRelease{}, fmt.Errorf("json: %w", err)
	}
	return HelmRelease{
		Name:         rec.Name,
		Namespace:    rec.Namespace,
		Revision:     rec.Version,
		Status:       rec.Info.Status,
		Chart:        rec.Chart.Metadata.Name,
		ChartVersion: rec.Chart.Metadata.Version,
		AppVersion:   rec.Chart.Metadata.AppVersion,
	}, nil
}
