// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/clubworks/memberd/internal/config"
	"github.com/labstack/echo/v4"
)

// TLSMode describes how the listener is secured.
type TLSMode string

const (
	TLSModeOff        TLSMode = "off"
	TLSModeSelfSigned TLSMode = "self-signed"
	TLSModeManual     TLSMode = "manual"
)

// TLSResult carries the resolved TLS setup.
type TLSResult struct {
	Mode      TLSMode
	TLSConfig *tls.Config
}

// SetupTLS resolves the configured TLS mode into a usable tls.Config.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	switch TLSMode(cfg.TLS.Mode) {
	case TLSModeOff, "":
		return &TLSResult{Mode: TLSModeOff}, nil

	case TLSModeSelfSigned:
		cert, err := loadOrGenerateSelfSigned(cfg)
		if err != nil {
			return nil, err
		}
		slog.Warn("using a self-signed certificate, clients must skip verification")
		return &TLSResult{Mode: TLSModeSelfSigned, TLSConfig: newTLSConfig(cert)}, nil

	case TLSModeManual:
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("manual TLS mode requires tls-cert-file and tls-key-file")
		}
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate pair: %w", err)
		}
		return &TLSResult{Mode: TLSModeManual, TLSConfig: newTLSConfig(&cert)}, nil

	default:
		return nil, fmt.Errorf("unknown TLS mode %q", cfg.TLS.Mode)
	}
}

// loadOrGenerateSelfSigned reuses a previously generated development
// certificate when one exists under the cert dir, otherwise generates a new
// one valid for a year.
func loadOrGenerateSelfSigned(cfg *config.Config) (*tls.Certificate, error) {
	certFile := filepath.Join(cfg.TLS.CertDir, "self-signed.crt")
	keyFile := filepath.Join(cfg.TLS.CertDir, "self-signed.key")

	if _, err := os.Stat(certFile); err == nil {
		cert, loadErr := tls.LoadX509KeyPair(certFile, keyFile)
		if loadErr == nil && !certExpiringSoon(&cert) {
			return &cert, nil
		}
	}

	return generateSelfSigned(cfg, certFile, keyFile)
}

func generateSelfSigned(cfg *config.Config, certFile, keyFile string) (*tls.Certificate, error) {
	if err := os.MkdirAll(cfg.TLS.CertDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cert dir: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cfg.Server.Host},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{cfg.Server.Host},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil { //nolint:gosec // public certificate
		return nil, fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key: %w", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	slog.Info("generated self-signed certificate", "cert", certFile)
	return &cert, nil
}

// certExpiringSoon reports whether the certificate runs out within 30 days.
func certExpiringSoon(cert *tls.Certificate) bool {
	if len(cert.Certificate) == 0 {
		return true
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return true
	}
	return time.Until(leaf.NotAfter) < 30*24*time.Hour
}

func newTLSConfig(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, result *TLSResult) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, result.TLSConfig)
	e.TLSServer.TLSConfig = result.TLSConfig
	return e.Server.Serve(e.TLSListener)
}
