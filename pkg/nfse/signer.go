// Interface de assinatura digital de documentos XML da NFS-e.

package nfse

import "crypto/tls"

// Signer assina um XML de DPS e devolve o documento com o bloco Signature
// envelopado como irmão do elemento alvo. Os algoritmos (canonização, digest,
// assinatura) são responsabilidade da implementação; ver pkg/nfse/xmldsig.
type Signer interface {
	// Sign recebe o XML sem assinatura, o Id do elemento referenciado
	// (fragmento da Reference) e o certificado com a chave privada.
	Sign(xmlBytes []byte, targetID string, cert tls.Certificate) ([]byte, error)
}
