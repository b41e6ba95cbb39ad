package delegation

import (
	"context"
	"fmt"

	"github.com/multiformats/go-multiaddr"
	"google.golang.org/grpc/credentials"
)

// EndpointAddr is a validator delegation sidecar's dial target, expressed
// as a multiaddr so the same configuration format covers a plain
// "/dns4/host/tcp/port" gRPC target and, eventually, a libp2p-routed one
// without changing the on-disk config schema.
type EndpointAddr struct {
	Multiaddr multiaddr.Multiaddr
}

// ParseEndpointAddr parses s as a multiaddr endpoint address.
func ParseEndpointAddr(s string) (EndpointAddr, error) {
	ma, err := multiaddr.NewMultiaddr(s)
	if err != nil {
		return EndpointAddr{}, fmt.Errorf("delegation: invalid endpoint address %q: %w", s, err)
	}
	return EndpointAddr{Multiaddr: ma}, nil
}

// DialTarget extracts the "host:port" form grpc.DialContext expects out
// of the multiaddr's /dns4|ip4/.../tcp/... components.
func (a EndpointAddr) DialTarget() (string, error) {
	var host, port string
	multiaddr.ForEach(a.Multiaddr, func(c multiaddr.Component) bool {
		switch c.Protocol().Code {
		case multiaddr.P_DNS4, multiaddr.P_DNS6, multiaddr.P_IP4, multiaddr.P_IP6:
			host = c.Value()
		case multiaddr.P_TCP:
			port = c.Value()
		}
		return true
	})
	if host == "" || port == "" {
		return "", fmt.Errorf("delegation: endpoint address %q missing host or tcp port", a.Multiaddr)
	}
	return host + ":" + port, nil
}

// DialEndpoint resolves addr to a dial target and connects a GRPCEndpoint
// to it. insecureOK permits plaintext connections for local/test
// deployments; production configuration should always supply real TLS
// credentials instead.
func DialEndpoint(ctx context.Context, addr EndpointAddr, creds credentials.TransportCredentials, insecureOK bool) (*GRPCEndpoint, error) {
	target, err := addr.DialTarget()
	if err != nil {
		return nil, err
	}
	if creds == nil && !insecureOK {
		return nil, fmt.Errorf("delegation: no transport credentials supplied for %q", target)
	}
	return DialGRPCEndpoint(ctx, target, creds)
}
