package inference

import "context"

// ServiceMetadata locates the OpenAI-compatible endpoint a compute provider
// serves, and the model name to request from it.
type ServiceMetadata struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
}

// Broker is the compute-network broker contract: it acknowledges providers,
// resolves their serving metadata, signs per-request headers and settles the
// per-response fee against the delivered content.
type Broker interface {
	Acknowledge(ctx context.Context, providerID string) error
	ServiceMetadata(ctx context.Context, providerID string) (ServiceMetadata, error)
	RequestHeaders(ctx context.Context, providerID, prompt string) (map[string]string, error)
	Settle(ctx context.Context, providerID, content, correlationID string) (bool, error)
}
