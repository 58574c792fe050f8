package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fiscalgo/nfse-nacional/pkg/config"
	"github.com/fiscalgo/nfse-nacional/pkg/nfse/xmldsig"
)

// Diagnóstico do certificado ICP-Brasil configurado: confere se o arquivo
// abre, se a senha decodifica o contêiner PKCS#12 e se o certificado está
// dentro da validade. Útil antes de apontar o cliente para a Sefin.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "carregar configuracao: %v\n", err)
		os.Exit(1)
	}
	if cfg.NFSe.CertPath == "" {
		fmt.Fprintln(os.Stderr, "NFSE_CERT_PATH nao definido")
		os.Exit(1)
	}

	fmt.Printf("certificado: %s\n", cfg.NFSe.CertPath)

	provider := xmldsig.P12Provider{
		Path:     cfg.NFSe.CertPath,
		Password: cfg.NFSe.CertPassword,
	}
	cert, err := provider.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FALHA: %v\n", err)
		os.Exit(1)
	}

	leaf := cert.Leaf
	fmt.Println("contêiner decodificado com sucesso")
	fmt.Printf("  titular:   %s\n", leaf.Subject.CommonName)
	fmt.Printf("  emissor:   %s\n", leaf.Issuer.CommonName)
	fmt.Printf("  validade:  %s a %s\n",
		leaf.NotBefore.Format("2006-01-02"),
		leaf.NotAfter.Format("2006-01-02"))

	now := time.Now()
	switch {
	case now.Before(leaf.NotBefore):
		fmt.Fprintln(os.Stderr, "ATENCAO: certificado ainda nao vigente")
		os.Exit(1)
	case now.After(leaf.NotAfter):
		fmt.Fprintln(os.Stderr, "ATENCAO: certificado vencido")
		os.Exit(1)
	case now.Add(30 * 24 * time.Hour).After(leaf.NotAfter):
		fmt.Printf("ATENCAO: certificado vence em %d dias\n", int(leaf.NotAfter.Sub(now).Hours()/24))
	default:
		fmt.Println("certificado vigente")
	}
}
