// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/chatbench/internal/appconfig"
	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/providers"
	"github.com/mwiater/chatbench/internal/providers/sudo"
	"github.com/mwiater/chatbench/internal/telemetry"
)

// NewTransport validates the configuration and returns the HTTP transport, wrapped
// with request telemetry when m is non-nil.
func NewTransport(cfg *appconfig.Config, m *telemetry.Metrics) (providers.Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var transport providers.Transport = sudo.New(cfg)
	logging.LogEvent("Using API base URL: %s", cfg.APIBaseURL())

	if m != nil {
		transport = telemetry.Instrument(transport, m)
	}
	return transport, nil
}
