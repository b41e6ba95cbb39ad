package delegation

import (
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/security/advancedtls"
)

// TLSConfig names the on-disk material for mutual TLS against a
// validator's delegation sidecar. RootCertFile is re-read on every
// handshake by advancedtls's provider, so a rotated validator cert does
// not require restarting the engine process to pick up.
type TLSConfig struct {
	CertFile     string
	KeyFile      string
	RootCertFile string
}

// NewClientCredentials builds advancedtls-backed transport credentials
// that reload the root CA from disk on each handshake, rather than
// pinning it for the process lifetime the way stdlib crypto/tls does.
func NewClientCredentials(cfg TLSConfig) (credentials.TransportCredentials, error) {
	identityOptions := advancedtls.PEMFileProviderOptions{
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
	}
	identityProvider, err := advancedtls.NewPEMFileProvider(identityOptions)
	if err != nil {
		return nil, err
	}

	rootOptions := advancedtls.PEMFileProviderOptions{
		RootFile: cfg.RootCertFile,
	}
	rootProvider, err := advancedtls.NewPEMFileProvider(rootOptions)
	if err != nil {
		return nil, err
	}

	options := &advancedtls.ClientOptions{
		IdentityOptions: advancedtls.IdentityCertificateOptions{
			IdentityProvider: identityProvider,
		},
		RootOptions: advancedtls.RootCertificateOptions{
			RootProvider: rootProvider,
		},
		VType: advancedtls.CertVerification,
	}
	return advancedtls.NewClientCreds(options)
}
