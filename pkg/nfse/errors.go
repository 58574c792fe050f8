package nfse

import (
	"fmt"
)

// Taxonomia de erros do cliente NFS-e. Erros locais (formato, validação)
// falham antes de qualquer I/O; erros de rede e de API chegam ao chamador com
// código, mensagem e status HTTP suficientes para decidir retry.

// FieldError aponta uma violação de invariante em um campo do modelo.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("nfse: campo %s: %s", e.Field, e.Message)
}

// FormatError violação de padrão de identificador ou de campo, detectada
// antes de qualquer chamada de rede.
type FormatError struct {
	Fields []FieldError
}

func (e *FormatError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Error()
	}
	return fmt.Sprintf("nfse: %d campos invalidos (primeiro: %s)", len(e.Fields), e.Fields[0].Error())
}

// newFormatError embala uma lista não vazia de FieldError.
func newFormatError(fields []FieldError) *FormatError {
	return &FormatError{Fields: fields}
}

// CredentialError problema com o contêiner de credenciais: arquivo ausente,
// senha errada, chave ou certificado ausentes.
type CredentialError struct {
	Message string
	Err     error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nfse: credencial: %s: %v", e.Message, e.Err)
	}
	return "nfse: credencial: " + e.Message
}

func (e *CredentialError) Unwrap() error { return e.Err }

// SignatureError falha na assinatura: elemento alvo ausente ou erro da
// primitiva criptográfica.
type SignatureError struct {
	Message string
	Err     error
}

func (e *SignatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nfse: assinatura: %s: %v", e.Message, e.Err)
	}
	return "nfse: assinatura: " + e.Message
}

func (e *SignatureError) Unwrap() error { return e.Err }

// DecodingError token do envelope de transporte malformado
// (Base64 inválido ou stream GZip corrompido).
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("nfse: decodificar envelope: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// TimeoutError chamada de rede estourou o prazo configurado. Retryable: o
// estado do lado do servidor fica indefinido para o chamador.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("nfse: timeout em %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Retryable marca o erro como passível de retry pelo chamador.
func (e *TimeoutError) Retryable() bool { return true }

// TransportError falha de conexão que não é timeout (DNS, TLS, reset).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nfse: comunicacao em %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable marca o erro como passível de retry pelo chamador.
func (e *TransportError) Retryable() bool { return true }

// APIError resposta HTTP de erro da Sefin/ADN. Quando o corpo traz o par
// {codigo, mensagem} estruturado, os campos vêm preenchidos; senão Codigo
// recebe o status HTTP e Mensagem o texto cru.
type APIError struct {
	Codigo     string
	Mensagem   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nfse: API [%s] %s (HTTP %d)", e.Codigo, e.Mensagem, e.StatusCode)
}

// NotFoundError especialização de APIError para HTTP 404 em consultas,
// cancelamentos e downloads: chave de acesso desconhecida ou recurso
// inexistente, distinta de um 200 com corpo vazio.
type NotFoundError struct {
	APIError
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("nfse: nao encontrado [%s] %s", e.Codigo, e.Mensagem)
}
