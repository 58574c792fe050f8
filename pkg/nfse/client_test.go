package nfse_test

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalgo/nfse-nacional/pkg/nfse"
)

// stubSigner devolve o XML intacto; os testes do motor de assinatura real
// ficam no pacote xmldsig.
type stubSigner struct{}

func (stubSigner) Sign(xmlBytes []byte, targetID string, cert tls.Certificate) ([]byte, error) {
	return xmlBytes, nil
}

// stubProvider entrega um certificado vazio, suficiente porque o transporte é
// substituído nos testes.
type stubProvider struct{}

func (stubProvider) Load() (tls.Certificate, error) {
	return tls.Certificate{}, nil
}

func newTestClient(t *testing.T, serverURL string, timeout time.Duration) *nfse.Client {
	t.Helper()
	client, err := nfse.NewClient(nfse.ClientConfig{
		Ambiente:     nfse.AmbienteHomologacao,
		Certificados: stubProvider{},
		Signer:       stubSigner{},
		Timeout:      timeout,
		SefinBaseURL: serverURL,
		ADNBaseURL:   serverURL,
		HTTPClient:   http.DefaultClient,
	})
	require.NoError(t, err)
	return client
}

const testChaveAcesso = "35503080011222333000181000009000000000000000012345"

func TestNewClient_AmbienteInvalido(t *testing.T) {
	_, err := nfse.NewClient(nfse.ClientConfig{
		Ambiente: "staging",
		Signer:   stubSigner{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiente desconhecido")
}

func TestNewClient_SignerObrigatorio(t *testing.T) {
	_, err := nfse.NewClient(nfse.ClientConfig{Ambiente: nfse.AmbienteHomologacao})
	require.Error(t, err)
}

func TestSubmitDPS_Sucesso(t *testing.T) {
	nfseXML := `<NFSe><chNFSe>` + testChaveAcesso + `</chNFSe></NFSe>`
	token, err := nfse.CompressEncode(nfseXML)
	require.NoError(t, err)

	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/nfse", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"chaveAcesso":    testChaveAcesso,
			"nNFSe":          "900",
			"nfseXmlGZipB64": token,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	result, err := client.SubmitDPS(context.Background(), dpsValida())
	require.NoError(t, err)

	assert.Equal(t, testChaveAcesso, result.ChaveAcesso)
	assert.Equal(t, "900", result.NumeroNFSe)
	assert.Equal(t, nfseXML, result.XMLNFSe, "o XML da NFS-e volta descomprimido")

	// O corpo enviado carrega o XML assinado no envelope GZip+Base64.
	enviado, err := nfse.DecodeDecompress(gotBody["dps"])
	require.NoError(t, err)
	assert.Contains(t, enviado, "<infDPS Id=")
	assert.Contains(t, enviado, "<dCompet>2026-01</dCompet>")
}

func TestSubmitDPS_InvalidaNaoTocaARede(t *testing.T) {
	var chamadas atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chamadas.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	dps := dpsValida()
	dps.Servico.CodigoLC116 = "04.03"

	_, err := client.SubmitDPS(context.Background(), dps)
	require.Error(t, err)
	var formatErr *nfse.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "servico.codigo_lc116", formatErr.Fields[0].Field)
	assert.Equal(t, int32(0), chamadas.Load(), "violação local não pode gerar chamada de rede")
}

func TestSubmitDPS_ErroDaAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"codigo":   "E0100",
			"mensagem": "DPS ja emitida para esta numeracao",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	_, err := client.SubmitDPS(context.Background(), dpsValida())
	require.Error(t, err)

	var apiErr *nfse.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "E0100", apiErr.Codigo)
	assert.Equal(t, "DPS ja emitida para esta numeracao", apiErr.Mensagem)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestQueryNFSe_Sucesso(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nfse/"+testChaveAcesso, r.URL.Path)
		_, _ = w.Write([]byte(`{
			"chaveAcesso": "` + testChaveAcesso + `",
			"nNFSe": "900",
			"situacao": "emitida",
			"dhEmi": "2026-01-15T10:30:00-03:00",
			"vServPrest": 500.00,
			"CNPJPrest": "11222333000181",
			"CPFToma": "52998224725"
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	result, err := client.QueryNFSe(context.Background(), testChaveAcesso)
	require.NoError(t, err)

	assert.Equal(t, testChaveAcesso, result.ChaveAcesso)
	assert.Equal(t, nfse.StatusEmitida, result.Status)
	assert.Equal(t, "500.00", result.ValorServicos.StringFixed(2))
	assert.Equal(t, "11222333000181", result.PrestadorCNPJ)
	assert.Equal(t, "52998224725", result.TomadorDocumento)
}

func TestQueryNFSe_NaoEncontrada(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"codigo":   "E404",
			"mensagem": "NFS-e nao localizada",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	chaveInexistente := strings.Repeat("0", 50)
	_, err := client.QueryNFSe(context.Background(), chaveInexistente)
	require.Error(t, err)

	var notFound *nfse.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "E404", notFound.Codigo)
}

func TestQueryNFSe_ChaveForaDoTamanho(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0", 5*time.Second)
	_, err := client.QueryNFSe(context.Background(), "abc123")
	require.Error(t, err)
	var formatErr *nfse.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestCancelNFSe_Sucesso(t *testing.T) {
	var evento map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/eventos", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&evento))
		_ = json.NewEncoder(w).Encode(map[string]string{"protocolo": "PROT-001"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	result, err := client.CancelNFSe(context.Background(), testChaveAcesso, "Erro na emissao")
	require.NoError(t, err)

	assert.Equal(t, "PROT-001", result.Protocolo)
	assert.Equal(t, "110111", evento["tpEvento"], "cancelamento usa o tpEvento da tabela nacional")
	assert.Equal(t, testChaveAcesso, evento["chNFSe"])
	assert.Equal(t, "Erro na emissao", evento["xMotivo"])
}

func TestCancelNFSe_MotivoObrigatorio(t *testing.T) {
	var chamadas atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chamadas.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	_, err := client.CancelNFSe(context.Background(), testChaveAcesso, "")
	require.Error(t, err)
	var formatErr *nfse.FormatError
	assert.ErrorAs(t, err, &formatErr)
	assert.Equal(t, int32(0), chamadas.Load())
}

func TestCancelNFSe_ChaveDesconhecida(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nao encontrada", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	_, err := client.CancelNFSe(context.Background(), strings.Repeat("0", 50), "motivo qualquer")
	var notFound *nfse.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDownloadDANFSE_Sucesso(t *testing.T) {
	pdf := []byte("%PDF-1.7\n%conteudo de teste")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/danfse/"+testChaveAcesso, r.URL.Path)
		require.Equal(t, "application/pdf", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pdf)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	data, err := client.DownloadDANFSE(context.Background(), testChaveAcesso)
	require.NoError(t, err)
	assert.Equal(t, pdf, data, "a assinatura %PDF basta mesmo sem Content-Type de PDF")
}

func TestDownloadDANFSE_ConteudoNaoPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>pagina de erro</html>"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	_, err := client.DownloadDANFSE(context.Background(), testChaveAcesso)
	require.Error(t, err)
	var notFound *nfse.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDownloadDANFSE_NaoEncontrado(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sem DANFSE", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5*time.Second)
	_, err := client.DownloadDANFSE(context.Background(), testChaveAcesso)
	var notFound *nfse.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestClient_TimeoutViraTimeoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 50*time.Millisecond)
	_, err := client.QueryNFSe(context.Background(), testChaveAcesso)
	require.Error(t, err)

	var timeoutErr *nfse.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, timeoutErr.Retryable())
}

func TestClient_FalhaDeConexaoViraTransportError(t *testing.T) {
	// Porta fechada: conexão recusada na hora, sem timeout.
	client := newTestClient(t, "http://127.0.0.1:1", 2*time.Second)
	_, err := client.QueryNFSe(context.Background(), testChaveAcesso)
	require.Error(t, err)

	var transportErr *nfse.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Retryable())
}
