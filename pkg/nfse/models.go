package nfse

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modelos da DPS (Declaração de Prestação de Serviços) e da NFS-e resultante.
// Construção livre pelo chamador; invariantes conferidas uma única vez por
// Validate() antes de serializar ou assinar.

// Endereco endereço nacional usado por prestador e tomador.
type Endereco struct {
	Logradouro      string
	Numero          string
	Complemento     string // opcional
	Bairro          string
	CodigoMunicipio int // código IBGE de 7 dígitos
	UF              string
	CEP             string // normalizado para 8 dígitos
}

// Prestador emissor da nota. Imutável durante a construção de uma DPS.
type Prestador struct {
	CNPJ               string // 14 dígitos, DV válido
	InscricaoMunicipal string
	RazaoSocial        string
	NomeFantasia       string // opcional
	Endereco           Endereco
	Email              string // opcional
	Telefone           string // opcional
}

// Tomador destinatário do serviço. Exatamente um entre CPF e CNPJ deve estar
// preenchido.
type Tomador struct {
	CPF         string // opcional, 11 dígitos
	CNPJ        string // opcional, 14 dígitos
	RazaoSocial string
	Endereco    *Endereco // opcional
	Email       string    // opcional
	Telefone    string    // opcional
}

// Servico linha de serviço da DPS.
type Servico struct {
	CodigoCNAE                string // opcional
	CodigoLC116               string // item da LC 116 com subitem ("04.03.01" ou "040301")
	CodigoTributacaoMunicipal string // opcional (cTribMun)
	CodigoNBS                 string // opcional, 9 dígitos (cNBS)
	Discriminacao             string
	ValorServicos             decimal.Decimal // > 0
	ISSRetido                 bool
	AliquotaISS               *decimal.Decimal // opcional
	AliquotaSimples           *decimal.Decimal // opcional; usada em pTotTribSN
	ValorDeducoes             decimal.Decimal
	ValorPIS                  decimal.Decimal
	ValorCOFINS               decimal.Decimal
	ValorINSS                 decimal.Decimal
	ValorIR                   decimal.Decimal
	ValorCSLL                 decimal.Decimal
}

// DPS declaração de prestação de serviços submetida para obter a NFS-e.
// Consumida uma vez por serialização+assinatura; não mutar depois de assinada.
type DPS struct {
	IDDPS                string // opcional; se vazio é gerado (ver GenerateDPSID)
	Serie                string // 1 a 5 dígitos, só números
	Numero               int64  // > 0
	Competencia          string // YYYY-MM
	DataEmissao          time.Time
	Prestador            Prestador
	Tomador              Tomador
	Servico              Servico
	RegimeTributario     RegimeTributario
	OptanteSimples       bool
	IncentivadorCultural bool
}

// NFSe nota emitida pela Sefin após processar a DPS. Criada do lado do
// servidor; transita para cancelada apenas via evento de cancelamento.
type NFSe struct {
	ChaveAcesso        string // 50 caracteres
	Numero             string
	CodigoVerificacao  string
	DataEmissao        time.Time
	Competencia        string
	Status             StatusNFSe
	XMLOriginal        string // XML assinado resultante, quando retornado
	DataCancelamento   *time.Time
	MotivoCancelamento string
}

// SubmitResult resultado da submissão de uma DPS.
type SubmitResult struct {
	ChaveAcesso string
	NumeroNFSe  string
	XMLNFSe     string // decodificado do campo nfse comprimido, quando presente
}

// QueryResult resultado da consulta de NFS-e por chave de acesso.
type QueryResult struct {
	ChaveAcesso      string
	NumeroNFSe       string
	Status           StatusNFSe
	DataEmissao      string
	ValorServicos    decimal.Decimal
	PrestadorCNPJ    string
	TomadorDocumento string
	XMLNFSe          string
}

// EventResult resultado do registro de um evento (cancelamento).
type EventResult struct {
	Protocolo string
}

// AliquotaServico resultado da consulta de alíquota na parametrização
// municipal. Aderido=false indica serviço não conveniado (HTTP 404).
type AliquotaServico struct {
	CodigoMunicipio int
	CodigoServico   string // limpo de pontos e completado com zeros à direita até 9 dígitos
	Competencia     string
	Aliquota        *decimal.Decimal
	Aderido         bool
}

// ConvenioMunicipal situação de convênio de um município com o padrão
// nacional.
type ConvenioMunicipal struct {
	CodigoMunicipio int
	Aderido         bool
	DataAdesao      string
}

// SequenceSource fornece o próximo número sequencial de DPS. A persistência
// do contador é responsabilidade do chamador; o núcleo nunca faz I/O de
// numeração.
type SequenceSource interface {
	Next() (int64, error)
}
