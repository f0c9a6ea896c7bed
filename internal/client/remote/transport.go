package remote

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

const requestTimeout = 10 * time.Second

// loadRootCAs reads a PEM bundle to trust in addition to nothing else.
func loadRootCAs(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	return caPool, nil
}

// NewHTTPClient returns the client used for API calls. When caFile is set the
// server certificate must chain to it.
func NewHTTPClient(caFile string) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: requestTimeout}, nil
	}
	caPool, err := loadRootCAs(caFile)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: requestTimeout}, nil
}

// newDialer returns the websocket dialer sharing hc's TLS settings.
func newDialer(hc *http.Client) *websocket.Dialer {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = requestTimeout
	if t, ok := hc.Transport.(*http.Transport); ok && t.TLSClientConfig != nil {
		d.TLSClientConfig = t.TLSClientConfig.Clone()
	}
	return &d
}
