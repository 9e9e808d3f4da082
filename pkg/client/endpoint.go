package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/devsapp/ripeness-uploader/pkg/config"
)

// Resolver resolve the predict target for the model selected at trigger time
type Resolver interface {
	Resolve(model string) (string, error)
}

// FixedResolver always the same endpoint, model ignored
type FixedResolver struct {
	URL string
}

func (f *FixedResolver) Resolve(string) (string, error) {
	return f.URL, nil
}

// TemplateResolver endpoint with a {model} path segment
type TemplateResolver struct {
	Template string
}

func (t *TemplateResolver) Resolve(model string) (string, error) {
	if !config.IsModel(model) {
		return "", fmt.Errorf("model %s not support", model)
	}
	return strings.ReplaceAll(t.Template, config.ModelHolder, url.PathEscape(model)), nil
}

// NewResolver pick resolver by endpointMode
func NewResolver(cfg *config.Config) Resolver {
	if cfg.EndpointMode == config.ModelEndpoint {
		return &TemplateResolver{Template: cfg.PredictUrlTemplate}
	}
	return &FixedResolver{URL: cfg.PredictUrl}
}
