package nfse

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fiscalgo/nfse-nacional/pkg/logger"
)

// CertificateProvider fronteira do provedor de chaves: decodifica um
// contêiner de credenciais (PKCS#12, PEM) e devolve o material pronto para
// assinatura e mTLS. Consumido aqui e pelo motor de assinatura; o material é
// somente leitura depois de carregado.
type CertificateProvider interface {
	Load() (tls.Certificate, error)
}

// ClientConfig parâmetros de construção do cliente.
type ClientConfig struct {
	Ambiente     Ambiente
	Certificados CertificateProvider
	Signer       Signer
	Timeout      time.Duration // por chamada; default 30s
	Logger       *logger.Logger

	// Overrides de URL para testes. Vazio = URLs oficiais do ambiente.
	SefinBaseURL string
	ADNBaseURL   string

	// HTTPClient substitui o client mTLS (testes). Quando nil, o transporte
	// é montado com o certificado do provider na primeira chamada.
	HTTPClient *http.Client
}

// Client cliente da API NFS-e Nacional (Sefin + ADN) com mTLS.
//
// Cada operação é uma única troca request/response síncrona limitada pelo
// timeout configurado; não há retry automático nem estado mutável
// compartilhado além do par chave/certificado, carregado uma única vez e
// somente lido depois disso. Instâncias distintas podem rodar em paralelo.
type Client struct {
	ambiente Ambiente
	sefinURL string
	adnURL   string
	timeout  time.Duration
	log      *logger.Logger

	builder  *XMLBuilder
	signer   Signer
	certProv CertificateProvider

	// célula de credencial: carga única, leitura múltipla
	certOnce sync.Once
	cert     tls.Certificate
	certErr  error

	httpOnce   sync.Once
	httpClient *http.Client
	httpErr    error
}

// NewClient monta o cliente. Signer e Certificados são obrigatórios para
// submissão; consultas puras funcionam sem assinatura mas ainda exigem o
// certificado para o mTLS.
func NewClient(cfg ClientConfig) (*Client, error) {
	if !cfg.Ambiente.Valid() {
		return nil, fmt.Errorf("nfse: ambiente desconhecido %q (usar %q ou %q)", cfg.Ambiente, AmbienteHomologacao, AmbienteProducao)
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("nfse: Signer obrigatorio")
	}
	if cfg.Certificados == nil && cfg.HTTPClient == nil {
		return nil, fmt.Errorf("nfse: CertificateProvider obrigatorio para mTLS")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	sefinURL := cfg.SefinBaseURL
	if sefinURL == "" {
		sefinURL = sefinURLs[cfg.Ambiente]
	}
	adnURL := cfg.ADNBaseURL
	if adnURL == "" {
		adnURL = adnURLs[cfg.Ambiente]
	}
	c := &Client{
		ambiente:   cfg.Ambiente,
		sefinURL:   sefinURL,
		adnURL:     adnURL,
		timeout:    timeout,
		log:        log,
		builder:    NewXMLBuilder(cfg.Ambiente),
		signer:     cfg.Signer,
		certProv:   cfg.Certificados,
		httpClient: cfg.HTTPClient,
	}
	return c, nil
}

// loadCert carrega o certificado uma única vez; chamadas seguintes leem a
// mesma célula.
func (c *Client) loadCert() (tls.Certificate, error) {
	c.certOnce.Do(func() {
		if c.certProv == nil {
			c.certErr = &CredentialError{Message: "nenhum provedor de certificado configurado"}
			return
		}
		c.cert, c.certErr = c.certProv.Load()
	})
	return c.cert, c.certErr
}

// client monta (uma vez) o http.Client com o certificado no TLS.
func (c *Client) client() (*http.Client, error) {
	c.httpOnce.Do(func() {
		if c.httpClient != nil {
			return
		}
		cert, err := c.loadCert()
		if err != nil {
			c.httpErr = err
			return
		}
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{cert},
					MinVersion:   tls.VersionTLS12,
				},
			},
		}
	})
	return c.httpClient, c.httpErr
}

// ── Submissão ─────────────────────────────────────────────────────────────────

// respostas JSON da Sefin
type submitResponse struct {
	ChaveAcesso string `json:"chaveAcesso"`
	NNFSe       string `json:"nNFSe"`
	NFSe        string `json:"nfse"`
	NFSeGZip    string `json:"nfseXmlGZipB64"`
}

type apiErrorBody struct {
	Codigo   string `json:"codigo"`
	Mensagem string `json:"mensagem"`
}

// SubmitDPS valida, serializa, assina, comprime e submete a DPS. Violações
// locais falham com FormatError antes de qualquer chamada de rede.
func (c *Client) SubmitDPS(ctx context.Context, dps *DPS) (*SubmitResult, error) {
	if dps == nil {
		return nil, fmt.Errorf("nfse: DPS obrigatoria")
	}
	if fields := dps.Validate(); len(fields) > 0 {
		return nil, newFormatError(fields)
	}

	xmlBytes, err := c.builder.Build(dps)
	if err != nil {
		return nil, err
	}
	cert, err := c.loadCert()
	if err != nil {
		return nil, err
	}
	signedXML, err := c.signer.Sign(xmlBytes, dps.IDDPS, cert)
	if err != nil {
		return nil, err
	}
	token, err := CompressEncode(string(signedXML))
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(map[string]string{"dps": token})
	resp, raw, err := c.do(ctx, http.MethodPost, c.sefinURL+endpointSubmitDPS, body, "emitir DPS")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.apiError(resp.StatusCode, raw)
	}

	var out submitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Codigo: strconv.Itoa(resp.StatusCode), Mensagem: "resposta da Sefin fora do formato esperado", StatusCode: resp.StatusCode}
	}
	result := &SubmitResult{ChaveAcesso: out.ChaveAcesso, NumeroNFSe: out.NNFSe}
	if enc := firstNonEmpty(out.NFSe, out.NFSeGZip); enc != "" {
		if xmlNFSe, decErr := DecodeDecompress(enc); decErr == nil {
			result.XMLNFSe = xmlNFSe
		} else {
			// Alguns conveniados devolvem o XML sem compressão.
			result.XMLNFSe = enc
		}
	}
	c.log.Info().Str("chave_acesso", result.ChaveAcesso).Str("nfse", result.NumeroNFSe).Msg("DPS emitida")
	return result, nil
}

// ── Consulta ──────────────────────────────────────────────────────────────────

type queryResponse struct {
	ChaveAcesso string      `json:"chaveAcesso"`
	NNFSe       string      `json:"nNFSe"`
	Situacao    string      `json:"situacao"`
	DhEmi       string      `json:"dhEmi"`
	VServPrest  json.Number `json:"vServPrest"`
	CNPJPrest   string      `json:"CNPJPrest"`
	CPFToma     string      `json:"CPFToma"`
	CNPJToma    string      `json:"CNPJToma"`
	NFSe        string      `json:"nfse"`
}

// QueryNFSe consulta uma NFS-e pela chave de acesso de 50 caracteres.
// Chave desconhecida devolve NotFoundError.
func (c *Client) QueryNFSe(ctx context.Context, chaveAcesso string) (*QueryResult, error) {
	if err := validateChave(chaveAcesso); err != nil {
		return nil, err
	}
	url := c.sefinURL + fmt.Sprintf(endpointQueryNFSe, chaveAcesso)
	resp, raw, err := c.doGET(ctx, url, "consultar NFS-e")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp.StatusCode, raw)
	}

	var out queryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Codigo: strconv.Itoa(resp.StatusCode), Mensagem: "resposta da Sefin fora do formato esperado", StatusCode: resp.StatusCode}
	}
	result := &QueryResult{
		ChaveAcesso:   out.ChaveAcesso,
		NumeroNFSe:    out.NNFSe,
		Status:        statusFromSituacao(out.Situacao),
		DataEmissao:   out.DhEmi,
		PrestadorCNPJ: out.CNPJPrest,
	}
	if out.VServPrest != "" {
		if v, convErr := decimalFromNumber(out.VServPrest); convErr == nil {
			result.ValorServicos = v
		}
	}
	result.TomadorDocumento = firstNonEmpty(out.CPFToma, out.CNPJToma)
	if out.NFSe != "" {
		if xmlNFSe, decErr := DecodeDecompress(out.NFSe); decErr == nil {
			result.XMLNFSe = xmlNFSe
		} else {
			result.XMLNFSe = out.NFSe
		}
	}
	return result, nil
}

// ── Cancelamento ──────────────────────────────────────────────────────────────

type eventResponse struct {
	Protocolo string `json:"protocolo"`
}

// CancelNFSe registra o evento de cancelamento (tpEvento 110111) para a chave
// de acesso. Só notas emitidas são canceláveis; chave desconhecida devolve
// NotFoundError sem mudança de estado.
func (c *Client) CancelNFSe(ctx context.Context, chaveAcesso, motivo string) (*EventResult, error) {
	if err := validateChave(chaveAcesso); err != nil {
		return nil, err
	}
	if motivo == "" {
		return nil, newFormatError([]FieldError{{"motivo", "motivo do cancelamento obrigatorio"}})
	}
	body, _ := json.Marshal(map[string]string{
		"tpEvento": EventoCancelamento,
		"chNFSe":   chaveAcesso,
		"xMotivo":  motivo,
	})
	resp, raw, err := c.do(ctx, http.MethodPost, c.sefinURL+endpointEventos, body, "cancelar NFS-e")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.apiError(resp.StatusCode, raw)
	}
	var out eventResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Codigo: strconv.Itoa(resp.StatusCode), Mensagem: "resposta de evento fora do formato esperado", StatusCode: resp.StatusCode}
	}
	c.log.Info().Str("chave_acesso", chaveAcesso).Str("protocolo", out.Protocolo).Msg("NFS-e cancelada")
	return &EventResult{Protocolo: out.Protocolo}, nil
}

// ── DANFSE ────────────────────────────────────────────────────────────────────

var pdfMagic = []byte("%PDF")

// DownloadDANFSE baixa o PDF do documento auxiliar no host da ADN. O conteúdo
// só é aceito com Content-Type de PDF ou com a assinatura %PDF nos quatro
// primeiros bytes; qualquer outra coisa é tratada como consulta falhada.
func (c *Client) DownloadDANFSE(ctx context.Context, chaveAcesso string) ([]byte, error) {
	if err := validateChave(chaveAcesso); err != nil {
		return nil, err
	}
	url := c.adnURL + fmt.Sprintf(endpointDANFSE, chaveAcesso)
	httpc, err := c.client()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("nfse: criar request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, classifyTransport("baixar DANFSE", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20)) // máx. 16 MB
	if err != nil {
		return nil, &TransportError{Op: "baixar DANFSE", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp.StatusCode, raw)
	}
	contentType := resp.Header.Get("Content-Type")
	if !bytes.HasPrefix(raw, pdfMagic) && !isPDFContentType(contentType) {
		return nil, &NotFoundError{APIError{
			Codigo:     strconv.Itoa(resp.StatusCode),
			Mensagem:   "conteudo retornado nao e um PDF",
			StatusCode: resp.StatusCode,
		}}
	}
	return raw, nil
}

func isPDFContentType(ct string) bool {
	return ct != "" && bytes.Contains([]byte(ct), []byte("pdf"))
}

// ── Infraestrutura HTTP ───────────────────────────────────────────────────────

func (c *Client) doGET(ctx context.Context, url, op string) (*http.Response, []byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, op)
}

// do executa uma única troca request/response com timeout próprio e devolve o
// corpo já lido. Erros de rede viram TimeoutError ou TransportError.
func (c *Client) do(ctx context.Context, method, url string, body []byte, op string) (*http.Response, []byte, error) {
	httpc, err := c.client()
	if err != nil {
		return nil, nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("nfse: criar request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	c.log.Debug().Str("request_id", requestID).Str("method", method).Str("url", url).Msg(op)

	resp, err := httpc.Do(req)
	if err != nil {
		c.log.Warn().Str("request_id", requestID).Err(err).Msg(op + " falhou")
		return nil, nil, classifyTransport(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // máx. 4 MB
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	c.log.Debug().Str("request_id", requestID).Int("status", resp.StatusCode).Msg(op + " respondido")
	return resp, raw, nil
}

// classifyTransport separa timeout (retryable com estado remoto indefinido)
// das demais falhas de conexão.
func classifyTransport(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// apiError converte uma resposta não-2xx em APIError/NotFoundError. Corpo
// não-JSON degrada para status+texto cru em vez de quebrar o parser.
func (c *Client) apiError(statusCode int, raw []byte) error {
	var body apiErrorBody
	codigo := strconv.Itoa(statusCode)
	mensagem := string(raw)
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Codigo != "" {
			codigo = body.Codigo
		}
		if body.Mensagem != "" {
			mensagem = body.Mensagem
		}
	}
	if mensagem == "" {
		mensagem = "erro desconhecido"
	}
	apiErr := APIError{Codigo: codigo, Mensagem: mensagem, StatusCode: statusCode}
	if statusCode == http.StatusNotFound {
		return &NotFoundError{apiErr}
	}
	return &apiErr
}

const chaveAcessoLength = 50

func validateChave(chave string) error {
	if len(chave) != chaveAcessoLength {
		return newFormatError([]FieldError{{"chave_acesso", fmt.Sprintf("chave de acesso deve ter %d caracteres, encontrados %d", chaveAcessoLength, len(chave))}})
	}
	return nil
}

func statusFromSituacao(situacao string) StatusNFSe {
	switch situacao {
	case string(StatusCancelada):
		return StatusCancelada
	case string(StatusSubstituida):
		return StatusSubstituida
	case "", string(StatusEmitida):
		return StatusEmitida
	default:
		return StatusNFSe(situacao)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
