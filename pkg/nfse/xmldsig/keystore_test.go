package xmldsig_test

import (
	"crypto/rand"
	"crypto/rsa"
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

	"github.com/fiscalgo/nfse-nacional/pkg/nfse"
	"github.com/fiscalgo/nfse-nacional/pkg/nfse/xmldsig"
)

func TestP12Provider_ArquivoInexistente(t *testing.T) {
	provider := xmldsig.P12Provider{Path: "/caminho/que/nao/existe.pfx", Password: "x"}
	_, err := provider.Load()
	require.Error(t, err)

	var credErr *nfse.CredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Contains(t, err.Error(), "nao encontrado")
}

func TestP12Provider_ConteudoInvalido(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lixo.pfx")
	require.NoError(t, os.WriteFile(path, []byte("isto nao e um pkcs12"), 0o600))

	provider := xmldsig.P12Provider{Path: path, Password: "qualquer"}
	_, err := provider.Load()
	var credErr *nfse.CredentialError
	require.ErrorAs(t, err, &credErr)
}

func TestPEMProvider_CarregaPar(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	escrevePar(t, certPath, keyPath)

	provider := xmldsig.PEMProvider{CertPath: certPath, KeyPath: keyPath}
	cert, err := provider.Load()
	require.NoError(t, err)
	assert.NotNil(t, cert.PrivateKey)
	assert.NotEmpty(t, cert.Certificate)
}

func TestPEMProvider_ArquivoInexistente(t *testing.T) {
	provider := xmldsig.PEMProvider{CertPath: "/nao/existe.pem"}
	_, err := provider.Load()
	var credErr *nfse.CredentialError
	require.ErrorAs(t, err, &credErr)
}

func escrevePar(t *testing.T, certPath, keyPath string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "teste"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certOut := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyOut := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(certPath, certOut, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyOut, 0o600))
}
