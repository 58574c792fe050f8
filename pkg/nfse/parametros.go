package nfse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Consultas de parametrização municipal na ADN: alíquota de serviço e
// convênio do município com o padrão nacional.
//
// O endpoint não tem forma estável de resposta: já devolveu objeto, número
// puro e lista. A ambiguidade é resolvida uma única vez aqui, num variant
// explícito; nada fora deste arquivo lida com o JSON cru.

// parametroKind discrimina a forma do payload de parametrização.
type parametroKind int

const (
	parametroAbsent parametroKind = iota
	parametroSingle
	parametroList
	parametroNumber
)

// parametroPayload variant resolvido do corpo de parametrização.
type parametroPayload struct {
	kind   parametroKind
	single map[string]json.RawMessage
	list   []map[string]json.RawMessage
	number decimal.Decimal
}

// resolveParametro classifica o corpo em Single, List, Number ou Absent.
func resolveParametro(raw []byte) parametroPayload {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return parametroPayload{kind: parametroAbsent}
	}
	switch trimmed[0] {
	case '{':
		var single map[string]json.RawMessage
		if err := json.Unmarshal(raw, &single); err == nil {
			return parametroPayload{kind: parametroSingle, single: single}
		}
	case '[':
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil {
			if len(list) == 0 {
				return parametroPayload{kind: parametroAbsent}
			}
			return parametroPayload{kind: parametroList, list: list}
		}
	default:
		if v, err := decimal.NewFromString(trimmed); err == nil {
			return parametroPayload{kind: parametroNumber, number: v}
		}
	}
	return parametroPayload{kind: parametroAbsent}
}

// aliquota extrai o percentual do variant, olhando as chaves conhecidas do
// payload ("aliquota", "vlAliq"). Listas usam o primeiro item.
func (p parametroPayload) aliquota() *decimal.Decimal {
	switch p.kind {
	case parametroNumber:
		v := p.number
		return &v
	case parametroSingle:
		return aliquotaFromRecord(p.single)
	case parametroList:
		return aliquotaFromRecord(p.list[0])
	}
	return nil
}

func aliquotaFromRecord(record map[string]json.RawMessage) *decimal.Decimal {
	for _, key := range []string{"aliquota", "vlAliq"} {
		raw, ok := record[key]
		if !ok {
			continue
		}
		if v, err := decimal.NewFromString(strings.Trim(string(raw), `"`)); err == nil {
			return &v
		}
	}
	return nil
}

// NormalizeCodigoServico limpa os pontos do código de serviço e completa com
// zeros à direita até 9 dígitos (formato do catálogo nacional).
func NormalizeCodigoServico(codigo string) string {
	cleaned := strings.ReplaceAll(codigo, ".", "")
	for len(cleaned) < 9 {
		cleaned += "0"
	}
	return cleaned
}

// QueryAliquotaServico consulta a alíquota de um serviço na parametrização do
// município para uma competência. HTTP 404 significa serviço não conveniado
// (Aderido=false), distinto de 200 com corpo vazio.
func (c *Client) QueryAliquotaServico(ctx context.Context, codigoMunicipio int, codigoServico, competencia string) (*AliquotaServico, error) {
	if codigoMunicipio < 1000000 || codigoMunicipio > 9999999 {
		return nil, newFormatError([]FieldError{{"codigo_municipio", "codigo_municipio deve ter 7 digitos"}})
	}
	if !competenciaPattern.MatchString(competencia) {
		return nil, newFormatError([]FieldError{{"competencia", "competencia deve estar no formato YYYY-MM"}})
	}
	servico := NormalizeCodigoServico(codigoServico)

	url := c.adnURL + fmt.Sprintf(endpointAliquota, codigoMunicipio, servico, competencia)
	resp, raw, err := c.doGET(ctx, url, "consultar aliquota")
	if err != nil {
		return nil, err
	}

	result := &AliquotaServico{
		CodigoMunicipio: codigoMunicipio,
		CodigoServico:   servico,
		Competencia:     competencia,
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		result.Aderido = false
		return result, nil
	case resp.StatusCode != http.StatusOK:
		return nil, c.apiError(resp.StatusCode, raw)
	}

	result.Aderido = true
	result.Aliquota = resolveParametro(raw).aliquota()
	return result, nil
}

// VerificarServicoAderido atalho booleano sobre QueryAliquotaServico.
func (c *Client) VerificarServicoAderido(ctx context.Context, codigoMunicipio int, codigoServico, competencia string) (bool, error) {
	result, err := c.QueryAliquotaServico(ctx, codigoMunicipio, codigoServico, competencia)
	if err != nil {
		return false, err
	}
	return result.Aderido, nil
}

// QueryConvenioMunicipal consulta a situação de convênio do município.
// HTTP 404 significa município sem convênio.
func (c *Client) QueryConvenioMunicipal(ctx context.Context, codigoMunicipio int) (*ConvenioMunicipal, error) {
	if codigoMunicipio < 1000000 || codigoMunicipio > 9999999 {
		return nil, newFormatError([]FieldError{{"codigo_municipio", "codigo_municipio deve ter 7 digitos"}})
	}
	url := c.adnURL + fmt.Sprintf(endpointConvenio, codigoMunicipio)
	resp, raw, err := c.doGET(ctx, url, "consultar convenio")
	if err != nil {
		return nil, err
	}

	result := &ConvenioMunicipal{CodigoMunicipio: codigoMunicipio}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return result, nil
	case resp.StatusCode != http.StatusOK:
		return nil, c.apiError(resp.StatusCode, raw)
	}

	payload := resolveParametro(raw)
	if payload.kind == parametroSingle {
		result.Aderido = boolField(payload.single, "aderido", true)
		result.DataAdesao = stringField(payload.single, "dataAdesao")
	} else {
		// Corpo 200 sem estrutura reconhecível ainda conta como conveniado.
		result.Aderido = payload.kind != parametroAbsent
	}
	return result, nil
}

func boolField(record map[string]json.RawMessage, key string, def bool) bool {
	raw, ok := record[key]
	if !ok {
		return def
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

func stringField(record map[string]json.RawMessage, key string) string {
	raw, ok := record[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.Trim(string(raw), `"`)
	}
	return v
}

func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, strconv.ErrSyntax
	}
	return decimal.NewFromString(n.String())
}
