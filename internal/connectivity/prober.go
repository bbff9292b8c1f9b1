package connectivity

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/errors"
)

// HTTPProber determines network state from local interfaces plus a
// captive-portal style generate-204 probe. Interface state answers
// "is there a link"; the probe answers "does the link reach the internet".
type HTTPProber struct {
	client   *http.Client
	probeURL string
}

// NewHTTPProber creates an HTTPProber against the given probe URL.
// The URL must return 204 No Content when the internet is reachable.
func NewHTTPProber(probeURL string, client *http.Client) *HTTPProber {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProber{probeURL: probeURL, client: client}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) (domain.NetworkState, error) {
	state := domain.NetworkState{Transport: domain.TransportNone}

	ifaces, err := net.Interfaces()
	if err != nil {
		return state, errors.Wrap(err, errors.CodeNetworkUnavailable, "listing network interfaces")
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		state.IsConnected = true
		state.Transport = guessTransport(iface.Name)
		break
	}

	if !state.IsConnected {
		return state, nil
	}

	// A link without internet (captive portal, walled garden) still counts
	// as offline for sync purposes.
	state.IsInternetReachable = p.probeInternet(ctx)
	return state, nil
}

func (p *HTTPProber) probeInternet(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusNoContent
}

func guessTransport(ifaceName string) domain.Transport {
	name := strings.ToLower(ifaceName)
	switch {
	case strings.HasPrefix(name, "wl"), strings.HasPrefix(name, "wifi"), strings.HasPrefix(name, "ath"):
		return domain.TransportWifi
	case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "rmnet"), strings.HasPrefix(name, "ccmni"):
		return domain.TransportCellular
	case strings.HasPrefix(name, "en"), strings.HasPrefix(name, "eth"):
		return domain.TransportEthernet
	default:
		return domain.TransportUnknown
	}
}
