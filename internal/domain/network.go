package domain

// Transport is the link type the device is currently using.
type Transport string

// Known transports.
const (
	TransportNone     Transport = "none"
	TransportWifi     Transport = "wifi"
	TransportCellular Transport = "cellular"
	TransportEthernet Transport = "ethernet"
	TransportUnknown  Transport = "unknown"
)

// NetworkState mirrors the OS reachability signal. It is never persisted;
// it is always current as of the last probe or OS callback.
type NetworkState struct {
	IsConnected         bool      `json:"is_connected"`
	IsInternetReachable bool      `json:"is_internet_reachable"`
	Transport           Transport `json:"transport"`
}

// Offline reports whether the device must be treated as offline for sync.
// A link-connected device without internet (captive Wi-Fi, for example)
// counts as offline.
func (s NetworkState) Offline() bool {
	return !s.IsConnected || !s.IsInternetReachable
}
