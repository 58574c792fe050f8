// Constantes da assinatura XML-DSig exigida pelo padrão nacional da NFS-e.

package xmldsig

// Namespaces e algoritmos. O validador da Sefin exige canonização exclusiva
// preservando comentários e o elemento Signature sem prefixo de namespace.
const (
	NamespaceDS = "http://www.w3.org/2000/09/xmldsig#"

	AlgC14NExclusiveWithComments = "http://www.w3.org/2001/10/xml-exc-c14n#WithComments"
	AlgRSASHA256                 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256                    = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped           = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)
