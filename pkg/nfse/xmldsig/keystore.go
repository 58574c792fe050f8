// Carga de certificado ICP-Brasil a partir de contêiner PKCS#12 ou par PEM.

package xmldsig

import (
	"crypto/tls"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/fiscalgo/nfse-nacional/pkg/nfse"
)

// P12Provider carrega certificado e chave privada de um arquivo .pfx/.p12
// protegido por senha. Implementa nfse.CertificateProvider.
type P12Provider struct {
	Path     string
	Password string
}

// Load implementa CertificateProvider. Toda falha vira CredentialError com a
// causa distinguível: arquivo ausente, senha errada ou contêiner sem chave.
func (p P12Provider) Load() (tls.Certificate, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return tls.Certificate{}, &nfse.CredentialError{Message: "arquivo de certificado nao encontrado: " + p.Path, Err: err}
	}
	priv, cert, err := pkcs12.Decode(data, p.Password)
	if err != nil {
		return tls.Certificate{}, &nfse.CredentialError{Message: "decodificar PKCS#12 (senha incorreta?)", Err: err}
	}
	if priv == nil {
		return tls.Certificate{}, &nfse.CredentialError{Message: "chave privada nao encontrada no conteiner"}
	}
	if cert == nil {
		return tls.Certificate{}, &nfse.CredentialError{Message: "certificado nao encontrado no conteiner"}
	}
	// pkcs12.Decode devolve só o certificado folha; para a Sefin isso basta.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// PEMProvider carrega certificado e chave de arquivos PEM (separados ou
// combinados no mesmo arquivo).
type PEMProvider struct {
	CertPath string
	KeyPath  string
}

// Load implementa CertificateProvider.
func (p PEMProvider) Load() (tls.Certificate, error) {
	keyPath := p.KeyPath
	if keyPath == "" {
		keyPath = p.CertPath
	}
	cert, err := tls.LoadX509KeyPair(p.CertPath, keyPath)
	if err != nil {
		return tls.Certificate{}, &nfse.CredentialError{Message: "carregar par PEM", Err: err}
	}
	return cert, nil
}

var (
	_ nfse.CertificateProvider = P12Provider{}
	_ nfse.CertificateProvider = PEMProvider{}
)
