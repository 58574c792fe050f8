// Package nfse implementa a emissão, consulta e cancelamento de NFS-e no
// padrão nacional (Sefin Nacional), incluindo a geração do XML da DPS,
// assinatura digital e o cliente HTTPS com mTLS.
package nfse

// Ambiente seleciona o conjunto de URLs da Sefin Nacional.
type Ambiente string

const (
	// AmbienteHomologacao ambiente de produção restrita (testes).
	AmbienteHomologacao Ambiente = "homologacao"
	// AmbienteProducao ambiente de produção.
	AmbienteProducao Ambiente = "producao"
)

// Valid reporta se o ambiente é um dos dois valores conhecidos.
func (a Ambiente) Valid() bool {
	return a == AmbienteHomologacao || a == AmbienteProducao
}

// TipoAmbiente devolve o dígito usado em tpAmb no XML da DPS:
// "1" produção, "2" homologação.
func (a Ambiente) TipoAmbiente() string {
	if a == AmbienteProducao {
		return "1"
	}
	return "2"
}

// URLs base da API Sefin Nacional por ambiente.
var sefinURLs = map[Ambiente]string{
	AmbienteHomologacao: "https://sefin.producaorestrita.nfse.gov.br/SefinNacional",
	AmbienteProducao:    "https://sefin.nfse.gov.br/SefinNacional",
}

// URLs base da API ADN (parametrização municipal e DANFSE) por ambiente.
// Host distinto do da Sefin.
var adnURLs = map[Ambiente]string{
	AmbienteHomologacao: "https://adn.producaorestrita.nfse.gov.br",
	AmbienteProducao:    "https://adn.nfse.gov.br",
}

const (
	endpointSubmitDPS = "/nfse"
	endpointQueryNFSe = "/nfse/%s"
	endpointEventos   = "/eventos"
	endpointDANFSE    = "/danfse/%s"
	endpointAliquota  = "/parametrizacao/parametros_municipais/%d/%s/%s/aliquota"
	endpointConvenio  = "/parametrizacao/parametros_municipais/%d/convenio"
)

// Versão do leiaute da DPS e identificação da aplicação emissora (verAplic).
const (
	DPSVersao = "1.01"
	VerAplic  = "gonfse-1.0"
	namespace = "http://www.sped.fazenda.gov.br/nfse"
)

// tpEvento de cancelamento de NFS-e (tabela de eventos do padrão nacional).
const EventoCancelamento = "110111"

// RegimeTributario enumera os regimes aceitos na DPS.
type RegimeTributario string

const (
	RegimeSimplesNacional RegimeTributario = "simples_nacional"
	RegimeSimplesExcesso  RegimeTributario = "simples_excesso"
	RegimeNormal          RegimeTributario = "normal"
	RegimeMEI             RegimeTributario = "mei"
)

// Valid reporta se o regime é um dos quatro valores conhecidos.
func (r RegimeTributario) Valid() bool {
	switch r {
	case RegimeSimplesNacional, RegimeSimplesExcesso, RegimeNormal, RegimeMEI:
		return true
	}
	return false
}

// =============================================================================
// Tabelas de códigos do leiaute (regTrib). Regime desconhecido cai no código
// default da tabela em vez de falhar; Validate() já rejeitou os valores fora
// da enumeração antes de chegar aqui.
// =============================================================================

// regimeEspecialCode mapeia o regime para regEspTrib. "0" = nenhum.
func regimeEspecialCode(r RegimeTributario) string {
	switch r {
	case RegimeMEI:
		return "4"
	default:
		return "0"
	}
}

// StatusNFSe situação de uma NFS-e emitida.
type StatusNFSe string

const (
	StatusEmitida     StatusNFSe = "emitida"
	StatusCancelada   StatusNFSe = "cancelada"
	StatusSubstituida StatusNFSe = "substituida"
)

// Cancelavel reporta se a nota admite o evento de cancelamento.
// Só notas emitidas podem transitar para canceladas; cancelada e substituída
// são estados terminais.
func (s StatusNFSe) Cancelavel() bool {
	return s == StatusEmitida
}
