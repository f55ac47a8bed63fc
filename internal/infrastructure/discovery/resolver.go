package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
)

// discoveryEnvelope is the response shape of the discovery endpoint.
// The api field carries a URL whose host:port is the resolved address.
type discoveryEnvelope struct {
	Code int    `json:"code"`
	API  string `json:"api"`
}

type endpointResolver struct {
	discoveryURL string
	httpClient   *http.Client
	logger       *logrus.Logger

	mu      sync.Mutex
	address string
}

// NewEndpointResolver creates a resolver against the given discovery
// URL. The resolved address is memoized per instance; it is never
// invalidated automatically, so address rotation requires a new
// resolver or an explicit Resolve call.
func NewEndpointResolver(discoveryURL string, timeout time.Duration, logger *logrus.Logger) ports.EndpointResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &endpointResolver{
		discoveryURL: discoveryURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// Resolve queries the discovery endpoint and stores the resulting
// address, replacing whatever was cached before. No retry here; retry
// policy belongs to the caller.
func (r *endpointResolver) Resolve(ctx context.Context) (string, error) {
	address, err := r.lookup(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.WithField("discovery_url", r.discoveryURL).WithError(err).Error("endpoint resolution failed")
		}
		return "", &almanac.ResolutionError{Err: err}
	}

	r.mu.Lock()
	r.address = address
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.WithField("address", address).Debug("resolved almanac endpoint")
	}
	return address, nil
}

// Ensure returns the memoized address, resolving only if none is
// cached yet.
func (r *endpointResolver) Ensure(ctx context.Context) (string, error) {
	r.mu.Lock()
	cached := r.address
	r.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	return r.Resolve(ctx)
}

func (r *endpointResolver) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.discoveryURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery endpoint returned HTTP %d", resp.StatusCode)
	}

	var envelope discoveryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to decode discovery response: %w", err)
	}
	if envelope.Code != 200 || envelope.API == "" {
		return "", fmt.Errorf("discovery endpoint returned non-success envelope: code=%d api=%q", envelope.Code, envelope.API)
	}

	return hostFromAPIURL(envelope.API), nil
}

// hostFromAPIURL strips the scheme and trailing slashes, leaving the
// host:port the fetch paths are built against.
func hostFromAPIURL(api string) string {
	address := strings.TrimPrefix(api, "http://")
	address = strings.TrimPrefix(address, "https://")
	return strings.TrimRight(address, "/")
}
