// Package xmldsig implementa a assinatura digital envelopada exigida pelo
// padrão nacional da NFS-e: canonização exclusiva com comentários, digest
// SHA-256, assinatura RSA-SHA256 e Reference por fragmento do Id do elemento.
// O bloco Signature entra sem prefixo de namespace, como irmão do elemento
// assinado — o parser da Sefin rejeita a forma prefixada.
package xmldsig

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/fiscalgo/nfse-nacional/pkg/nfse"
)

// Service implementa nfse.Signer. Não guarda estado: o material de chave
// entra por parâmetro e nunca é mutado; nenhum I/O de rede ou disco acontece
// aqui.
type Service struct{}

// NewService cria o serviço de assinatura.
func NewService() *Service {
	return &Service{}
}

// Sign assina o XML e injeta o bloco Signature como irmão do elemento cujo
// atributo Id é targetID.
func (s *Service) Sign(xmlBytes []byte, targetID string, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, &nfse.SignatureError{Message: "XML vazio"}
	}
	if cert.PrivateKey == nil || len(cert.Certificate) == 0 {
		return nil, &nfse.CredentialError{Message: "chave ou certificado nao carregados"}
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, &nfse.CredentialError{Message: "o certificado deve conter chave privada RSA"}
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, &nfse.CredentialError{Message: "parsear certificado", Err: err}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, &nfse.SignatureError{Message: "parsear XML", Err: err}
	}
	target := findByID(doc.Root(), targetID)
	if target == nil {
		return nil, &nfse.SignatureError{Message: "elemento alvo nao encontrado: Id=" + targetID}
	}

	// 1) Digest do elemento referenciado, canonizado.
	targetBytes, err := elementBytes(target)
	if err != nil {
		return nil, &nfse.SignatureError{Message: "serializar elemento alvo", Err: err}
	}
	canonicalTarget, err := canonicalize(targetBytes)
	if err != nil {
		// c14n falhou (entidade exótica, p. ex.); o digest cai nos bytes crus.
		canonicalTarget = targetBytes
	}
	digest := sha256.Sum256(canonicalTarget)
	digestB64 := base64.StdEncoding.EncodeToString(digest[:])

	// 2) SignedInfo canonizado e assinado com RSA-SHA256.
	signedInfoXML := buildSignedInfo(targetID, digestB64)
	canonicalSignedInfo, err := canonicalize([]byte(signedInfoXML))
	if err != nil {
		canonicalSignedInfo = []byte(signedInfoXML)
	}
	signedInfoHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, signedInfoHash[:])
	if err != nil {
		return nil, &nfse.SignatureError{Message: "assinar SignedInfo", Err: err}
	}

	signatureXML := buildSignature(
		signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(x509Cert.Raw),
	)

	// 3) Injeta o Signature como irmão do elemento assinado.
	return injectSibling(doc, target, signatureXML)
}

// findByID busca em profundidade o elemento com atributo Id igual a id.
func findByID(el *etree.Element, id string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.SelectAttrValue("Id", "") == id {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// elementBytes serializa o subtree do elemento em um documento próprio.
func elementBytes(el *etree.Element) ([]byte, error) {
	sub := etree.NewDocument()
	sub.SetRoot(el.Copy())
	var buf bytes.Buffer
	if _, err := sub.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// buildSignedInfo monta o SignedInfo com Reference por fragmento.
// O xmlns entra aqui para a canonização isolada do bloco.
func buildSignedInfo(targetID, digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<SignedInfo xmlns="` + NamespaceDS + `">`)
	sb.WriteString(`<CanonicalizationMethod Algorithm="` + AlgC14NExclusiveWithComments + `"/>`)
	sb.WriteString(`<SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<Reference URI="#` + targetID + `">`)
	sb.WriteString(`<Transforms><Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<Transform Algorithm="` + AlgC14NExclusiveWithComments + `"/></Transforms>`)
	sb.WriteString(`<DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<DigestValue>` + digestB64 + `</DigestValue>`)
	sb.WriteString(`</Reference>`)
	sb.WriteString(`</SignedInfo>`)
	return sb.String()
}

// buildSignature monta o bloco Signature completo, sem prefixo.
func buildSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<Signature xmlns="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<SignatureValue>` + signatureValueB64 + `</SignatureValue>`)
	sb.WriteString(`<KeyInfo><X509Data><X509Certificate>` + certB64 + `</X509Certificate></X509Data></KeyInfo>`)
	sb.WriteString(`</Signature>`)
	return sb.String()
}

// injectSibling insere o Signature logo depois do elemento alvo, dentro do
// mesmo pai, e serializa o documento inteiro.
func injectSibling(doc *etree.Document, target *etree.Element, signatureXML string) ([]byte, error) {
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, &nfse.SignatureError{Message: "parsear bloco Signature", Err: err}
	}
	sigRoot := sigDoc.Root()
	if sigRoot == nil {
		return nil, &nfse.SignatureError{Message: "bloco Signature vazio"}
	}

	parent := target.Parent()
	if parent == nil {
		// Alvo é a raiz: a assinatura entra como último filho dela.
		target.AddChild(sigRoot)
	} else {
		parent.AddChild(sigRoot)
	}

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, &nfse.SignatureError{Message: "serializar documento assinado", Err: err}
	}
	return out.Bytes(), nil
}

var _ nfse.Signer = (*Service)(nil)
