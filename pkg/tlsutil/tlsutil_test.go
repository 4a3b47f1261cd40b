package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/errors"
)

// generateTestCert creates a self-signed certificate for testing
func generateTestCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"gridwatch test"},
			CommonName:   "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	return certPEM, keyPEM
}

func setupTestFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	dir := t.TempDir()
	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	caFile = filepath.Join(dir, "ca.pem")

	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o644))
	return certFile, keyFile, caFile
}

func TestLoadClientTLSConfig(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)
	badPEM := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(badPEM, []byte("not a certificate"), 0o644))

	tests := []struct {
		name      string
		cfg       ClientConfig
		wantNil   bool
		wantErr   bool
		wantCerts int
		wantMin   uint16
	}{
		{name: "disabled", cfg: ClientConfig{CAFiles: []string{caFile}}, wantNil: true},
		{name: "system roots only", cfg: ClientConfig{Enabled: true}, wantMin: tls.VersionTLS12},
		{name: "extra CA and 1.3", cfg: ClientConfig{Enabled: true, CAFiles: []string{caFile}, MinVersion: "1.3"}, wantMin: tls.VersionTLS13},
		{name: "mutual TLS", cfg: ClientConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}, wantCerts: 1, wantMin: tls.VersionTLS12},
		{name: "missing CA file", cfg: ClientConfig{Enabled: true, CAFiles: []string{"/nonexistent/ca.pem"}}, wantErr: true},
		{name: "invalid CA PEM", cfg: ClientConfig{Enabled: true, CAFiles: []string{badPEM}}, wantErr: true},
		{name: "missing key", cfg: ClientConfig{Enabled: true, CertFile: certFile, KeyFile: "/nonexistent/key.pem"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadClientTLSConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsFatal(err))
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cfg)
				return
			}
			require.NotNil(t, cfg)
			assert.NotNil(t, cfg.RootCAs)
			assert.Len(t, cfg.Certificates, tt.wantCerts)
			assert.Equal(t, tt.wantMin, cfg.MinVersion)
			assert.False(t, cfg.InsecureSkipVerify)
		})
	}
}

func TestLoadServerTLSConfig(t *testing.T) {
	certFile, keyFile, _ := setupTestFiles(t)

	cfg, err := LoadServerTLSConfig(ServerConfig{})
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = LoadServerTLSConfig(ServerConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"})
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)

	_, err = LoadServerTLSConfig(ServerConfig{Enabled: true, CertFile: keyFile, KeyFile: certFile})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"client disabled ignores fields", ClientConfig{MinVersion: "0.9"}.Validate(), false},
		{"client cert without key", ClientConfig{Enabled: true, CertFile: "c.pem"}.Validate(), true},
		{"client bad version", ClientConfig{Enabled: true, MinVersion: "1.1"}.Validate(), true},
		{"client ok", ClientConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.3"}.Validate(), false},
		{"server missing files", ServerConfig{Enabled: true}.Validate(), true},
		{"server ok", ServerConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem"}.Validate(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				require.Error(t, tt.err)
				assert.True(t, errors.IsConfiguration(tt.err))
			} else {
				assert.NoError(t, tt.err)
			}
		})
	}
}

func TestParseTLSVersion(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS13), parseTLSVersion("1.3"))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion("1.2"))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion(""))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion("bogus"))
}
