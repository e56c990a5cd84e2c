// Package util holds the HTTP plumbing shared by every outbound client:
// proxy selection, client construction and robots.txt checks.
package util

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/papercheck/internal/model"
)

// NewProxyFunc creates a proxy function based on configuration.
// With no proxy URLs configured it falls back to the environment.
// Hosts listed in noProxy (comma separated, suffix match) bypass the proxy.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		host := req.URL.Hostname()
		for _, suffix := range bypass {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return nil, nil
			}
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitNoProxy(noProxy string) []string {
	var out []string
	for _, part := range strings.Split(noProxy, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewHTTPClient builds a client honoring the configured proxies.
// timeout overrides cfg.Timeout when positive.
func NewHTTPClient(cfg model.HTTPConfig, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = cfg.Timeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
