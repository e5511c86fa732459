package inference

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultCloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// CloudflareAdapter calls the Workers AI REST endpoint for one model.
type CloudflareAdapter struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewCloudflareAdapter(cfg Config) *CloudflareAdapter {
	base := strings.TrimRight(strings.TrimSpace(cfg.CloudflareBaseURL), "/")
	if base == "" {
		base = defaultCloudflareBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "@cf/meta/llama-3.3-70b-instruct-fp8-fast"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	// Model names contain '@' and '/' which the route expects verbatim.
	endpoint := base + "/accounts/" + url.PathEscape(strings.TrimSpace(cfg.CloudflareAccountID)) + "/ai/run/" + model
	return &CloudflareAdapter{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.CloudflareAPIToken),
		client:   &http.Client{Timeout: timeout},
	}
}

func (a *CloudflareAdapter) Mode() string { return "cloudflare" }

func (a *CloudflareAdapter) Run(ctx context.Context, req Request) ([]byte, error) {
	return postJSON(ctx, a.client, a.endpoint, map[string]string{
		"Authorization": "Bearer " + a.token,
	}, req)
}
