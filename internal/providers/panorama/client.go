// Package panorama is a minimal client for the PAN-OS XML API exposed by
// Panorama management servers.
package panorama

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platops/status-reports/internal/providers/fetch"
)

// ErrAPI wraps every error response returned by the XML API.
var ErrAPI = errors.New("pan-os api error")

// Options configures New.
type Options struct {
	Timeout  time.Duration
	Attempts int

	// InsecureSkipVerify accepts the self-signed certificate management
	// interfaces ship with.
	InsecureSkipVerify bool
}

// Client issues operational commands against one Panorama.
type Client struct {
	baseURL string
	getter  fetch.Getter
}

// New returns a client for host (IP or name, optionally with scheme)
// authenticating with apiKey.
func New(host, apiKey string, opts Options) *Client {
	fc := fetch.New(opts.Timeout, opts.Attempts)
	if opts.InsecureSkipVerify {
		fc.HTTP.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed management certs
		}
	}
	fc.Header = http.Header{"X-Pan-Key": {apiKey}}
	return NewWithGetter(host, fc)
}

// NewWithGetter returns a client that sends requests through g. Tests use
// it with an httptest server.
func NewWithGetter(host string, g fetch.Getter) *Client {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Client{baseURL: strings.TrimSuffix(base, "/"), getter: g}
}

// SystemInfo is the answer to "show system info".
type SystemInfo struct {
	Hostname  string `xml:"hostname"`
	SWVersion string `xml:"sw-version"`
	Model     string `xml:"model"`
	Serial    string `xml:"serial"`
}

// SoftwareVersion is one entry of "request system software info".
type SoftwareVersion struct {
	Version      string `xml:"version"`
	Downloaded   string `xml:"downloaded"`
	Current      string `xml:"current"`
	Latest       string `xml:"latest"`
	ReleasedOn   string `xml:"released-on"`
	ReleaseNotes string `xml:"release-notes"`
}

// Device is one firewall connected to Panorama.
type Device struct {
	Name      string `xml:"name,attr"`
	Serial    string `xml:"serial"`
	Hostname  string `xml:"hostname"`
	SWVersion string `xml:"sw-version"`
	Model     string `xml:"model"`
	Connected string `xml:"connected"`
}

type envelope struct {
	Status string `xml:"status,attr"`
	Code   string `xml:"code,attr"`
	Msg    struct {
		Text  string   `xml:",chardata"`
		Lines []string `xml:"line"`
	} `xml:"msg"`
	Result struct {
		Inner []byte `xml:",innerxml"`
		Msg   string `xml:"msg"`
	} `xml:"result"`
}

// op runs an operational command and decodes the <result> body into out.
func (c *Client) op(ctx context.Context, cmd string, out any) error {
	q := url.Values{}
	q.Set("type", "op")
	q.Set("cmd", cmd)
	endpoint := c.baseURL + "/api/?" + q.Encode()

	body, err := c.getter.Get(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("panorama %s: %w", c.baseURL, err)
	}
	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode panorama response: %w", err)
	}
	if env.Status != "success" {
		msg := strings.TrimSpace(env.Msg.Text)
		if len(env.Msg.Lines) > 0 {
			msg = strings.Join(env.Msg.Lines, "; ")
		}
		if msg == "" {
			msg = strings.TrimSpace(env.Result.Msg)
		}
		return fmt.Errorf("%w: status %q code %s: %s", ErrAPI, env.Status, env.Code, msg)
	}
	if err := xml.Unmarshal(append(append([]byte("<result>"), env.Result.Inner...), "</result>"...), out); err != nil {
		return fmt.Errorf("decode panorama result: %w", err)
	}
	return nil
}

// SystemInfo runs "show system info".
func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var res struct {
		System SystemInfo `xml:"system"`
	}
	if err := c.op(ctx, "<show><system><info></info></system></show>", &res); err != nil {
		return SystemInfo{}, err
	}
	return res.System, nil
}

// SoftwareVersions runs "request system software info".
func (c *Client) SoftwareVersions(ctx context.Context) ([]SoftwareVersion, error) {
	var res struct {
		Entries []SoftwareVersion `xml:"sw-updates>versions>entry"`
	}
	if err := c.op(ctx, "<request><system><software><info></info></software></system></request>", &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// ConnectedDevices runs "show devices connected".
func (c *Client) ConnectedDevices(ctx context.Context) ([]Device, error) {
	var res struct {
		Entries []Device `xml:"devices>entry"`
	}
	if err := c.op(ctx, "<show><devices><connected></connected></devices></show>", &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Release summarises the software catalogue: the version flagged latest
// and its available hot fixes that are not installed.
type Release struct {
	Version      string
	ReleasedOn   string
	ReleaseNotes string
	HotFixes     []string
}

// LatestRelease picks the entry flagged latest and collects the hot fixes
// of that version ("<latest>-hN") that are not the current install.
func LatestRelease(versions []SoftwareVersion) (Release, bool) {
	var r Release
	for _, v := range versions {
		if v.Latest == "yes" {
			r.Version = v.Version
			r.ReleasedOn = v.ReleasedOn
			r.ReleaseNotes = strings.TrimSpace(v.ReleaseNotes)
			break
		}
	}
	if r.Version == "" {
		return r, false
	}
	r.HotFixes = []string{}
	for _, v := range versions {
		if strings.Contains(v.Version, r.Version+"-h") && v.Current == "no" {
			r.HotFixes = append(r.HotFixes, v.Version)
		}
	}
	return r, true
}
