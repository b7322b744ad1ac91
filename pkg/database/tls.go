package database

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// GetTLSConfig creates a TLS config for connecting to PostgreSQL over mTLS.
// The client certificate is only loaded when both CertFile and KeyFile are set,
// and the system roots are used when CAFile is empty.
//
// Example usage:
//
//	tls, err := GetTLSConfig(opts)
//	if err != nil {
//		return err
//	}
func GetTLSConfig(opts ClientOptions) (*tls.Config, error) {
	settings := opts.TLSSettings
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if settings.CertFile != "" || settings.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load cert_file/key_file")
		}

		cfg.Certificates = []tls.Certificate{cert}
	}

	if settings.CAFile != "" {
		caCert, err := os.ReadFile(settings.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load ca_file")
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.Errorf("no certificates found in %s", settings.CAFile)
		}

		cfg.RootCAs = pool
	}

	return cfg, nil
}
