package nfse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// XMLBuilder gera o XML da DPS no leiaute do padrão nacional (sem assinatura).
// A ordem dos elementos é a do schema e precisa ser reproduzida exatamente:
// a Sefin valida o documento byte a byte depois da canonização.
type XMLBuilder struct {
	ambiente Ambiente
}

// NewXMLBuilder cria o builder para o ambiente informado.
func NewXMLBuilder(ambiente Ambiente) *XMLBuilder {
	return &XMLBuilder{ambiente: ambiente}
}

// aliquotaSimplesDefault estimativa de carga tributária do Simples Nacional
// usada em pTotTribSN quando o chamador não informa a alíquota (IBPT).
var aliquotaSimplesDefault = decimal.RequireFromString("18.83")

// Build serializa a DPS validada em XML UTF-8. O chamador é responsável por
// rodar Validate() antes; Build só garante o identificador e a ordem do
// leiaute.
func (b *XMLBuilder) Build(dps *DPS) ([]byte, error) {
	if dps == nil {
		return nil, fmt.Errorf("nfse: DPS obrigatoria")
	}
	id, err := dps.EnsureID(b.ambiente)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: "DPS"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "versao"}, Value: DPSVersao},
			{Name: xml.Name{Local: "xmlns"}, Value: namespace},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	infDPS := xml.StartElement{
		Name: xml.Name{Local: "infDPS"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "Id"}, Value: id}},
	}
	_ = enc.EncodeToken(infDPS)

	// ---- metadados de emissão, na ordem do schema
	writeEl(enc, "tpAmb", b.ambiente.TipoAmbiente())
	// dhEmi sempre com offset fixo -03:00 (horário de Brasília), independente
	// do Location do time.Time recebido.
	writeEl(enc, "dhEmi", dps.DataEmissao.Format("2006-01-02T15:04:05")+"-03:00")
	writeEl(enc, "verAplic", VerAplic)
	writeEl(enc, "serie", dps.Serie)
	writeEl(enc, "nDPS", strconv.FormatInt(dps.Numero, 10))
	writeEl(enc, "dCompet", dps.Competencia)
	writeEl(enc, "tpEmit", "1")
	writeEl(enc, "cLocEmi", strconv.Itoa(dps.Prestador.Endereco.CodigoMunicipio))

	b.writePrestador(enc, dps)
	b.writeTomador(enc, dps)
	b.writeServico(enc, dps)
	b.writeValores(enc, dps)

	_ = enc.EncodeToken(infDPS.End())
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writePrestador bloco prest: CNPJ, IM, contato e regime tributário.
func (b *XMLBuilder) writePrestador(enc *xml.Encoder, dps *DPS) {
	prest := startEl("prest")
	_ = enc.EncodeToken(prest)

	writeEl(enc, "CNPJ", dps.Prestador.CNPJ)

	// IM transmitida com padding de espaços à esquerda até 15 caracteres,
	// como nas NFS-e reais devolvidas pela Sefin.
	writeEl(enc, "IM", padLeftSpaces(dps.Prestador.InscricaoMunicipal, 15))

	if dps.Prestador.Telefone != "" {
		writeEl(enc, "fone", dps.Prestador.Telefone)
	}
	if dps.Prestador.Email != "" {
		writeEl(enc, "email", dps.Prestador.Email)
	}

	regTrib := startEl("regTrib")
	_ = enc.EncodeToken(regTrib)
	// opSimpNac: 1=não optante, 2=MEI, 3=ME/EPP
	if dps.OptanteSimples {
		writeEl(enc, "opSimpNac", "3")
		// regApTribSN: 1 = tributos federais e municipal apurados pelo SN
		writeEl(enc, "regApTribSN", "1")
	} else {
		writeEl(enc, "opSimpNac", "1")
	}
	writeEl(enc, "regEspTrib", regimeEspecialCode(dps.RegimeTributario))
	_ = enc.EncodeToken(regTrib.End())

	_ = enc.EncodeToken(prest.End())
}

// writeTomador bloco toma: documento, nome e endereço opcional.
func (b *XMLBuilder) writeTomador(enc *xml.Encoder, dps *DPS) {
	toma := startEl("toma")
	_ = enc.EncodeToken(toma)

	if dps.Tomador.CPF != "" {
		writeEl(enc, "CPF", dps.Tomador.CPF)
	} else if dps.Tomador.CNPJ != "" {
		writeEl(enc, "CNPJ", dps.Tomador.CNPJ)
	}
	writeEl(enc, "xNome", dps.Tomador.RazaoSocial)

	if e := dps.Tomador.Endereco; e != nil {
		end := startEl("end")
		_ = enc.EncodeToken(end)

		endNac := startEl("endNac")
		_ = enc.EncodeToken(endNac)
		writeEl(enc, "cMun", strconv.Itoa(e.CodigoMunicipio))
		writeEl(enc, "CEP", e.CEP)
		_ = enc.EncodeToken(endNac.End())

		writeEl(enc, "xLgr", e.Logradouro)
		writeEl(enc, "nro", e.Numero)
		if e.Complemento != "" {
			writeEl(enc, "xCpl", e.Complemento)
		}
		writeEl(enc, "xBairro", e.Bairro)

		_ = enc.EncodeToken(end.End())
	}

	_ = enc.EncodeToken(toma.End())
}

// writeServico bloco serv: local de prestação e código do serviço.
func (b *XMLBuilder) writeServico(enc *xml.Encoder, dps *DPS) {
	serv := startEl("serv")
	_ = enc.EncodeToken(serv)

	locPrest := startEl("locPrest")
	_ = enc.EncodeToken(locPrest)
	writeEl(enc, "cLocPrestacao", strconv.Itoa(dps.Prestador.Endereco.CodigoMunicipio))
	_ = enc.EncodeToken(locPrest.End())

	cServ := startEl("cServ")
	_ = enc.EncodeToken(cServ)
	writeEl(enc, "cTribNac", tribNacCode(dps.Servico.CodigoLC116))
	if dps.Servico.CodigoTributacaoMunicipal != "" {
		writeEl(enc, "cTribMun", dps.Servico.CodigoTributacaoMunicipal)
	}
	writeEl(enc, "xDescServ", dps.Servico.Discriminacao)
	if dps.Servico.CodigoNBS != "" {
		writeEl(enc, "cNBS", dps.Servico.CodigoNBS)
	}
	_ = enc.EncodeToken(cServ.End())

	_ = enc.EncodeToken(serv.End())
}

// writeValores bloco valores: vServPrest e tributação. No Simples Nacional o
// total de tributos sai como percentual único (pTotTribSN); fora dele sai a
// abertura federal/estadual/municipal — formas mutuamente exclusivas.
func (b *XMLBuilder) writeValores(enc *xml.Encoder, dps *DPS) {
	valores := startEl("valores")
	_ = enc.EncodeToken(valores)

	vServPrest := startEl("vServPrest")
	_ = enc.EncodeToken(vServPrest)
	writeEl(enc, "vServ", formatValor(dps.Servico.ValorServicos))
	_ = enc.EncodeToken(vServPrest.End())

	trib := startEl("trib")
	_ = enc.EncodeToken(trib)

	tribMun := startEl("tribMun")
	_ = enc.EncodeToken(tribMun)
	writeEl(enc, "tribISSQN", "1")
	// tpRetISSQN: 1=não retido, 2=retido pelo tomador
	if dps.Servico.ISSRetido {
		writeEl(enc, "tpRetISSQN", "2")
	} else {
		writeEl(enc, "tpRetISSQN", "1")
	}
	_ = enc.EncodeToken(tribMun.End())

	totTrib := startEl("totTrib")
	_ = enc.EncodeToken(totTrib)
	if dps.OptanteSimples {
		aliquota := aliquotaSimplesDefault
		if dps.Servico.AliquotaSimples != nil {
			aliquota = *dps.Servico.AliquotaSimples
		}
		writeEl(enc, "pTotTribSN", formatValor(aliquota))
	} else {
		pTotTrib := startEl("pTotTrib")
		_ = enc.EncodeToken(pTotTrib)
		writeEl(enc, "pTotTribFed", "0")
		writeEl(enc, "pTotTribEst", "0")
		writeEl(enc, "pTotTribMun", "0")
		_ = enc.EncodeToken(pTotTrib.End())
	}
	_ = enc.EncodeToken(totTrib.End())

	_ = enc.EncodeToken(trib.End())
	_ = enc.EncodeToken(valores.End())
}

func startEl(local string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: local}}
}

func writeEl(enc *xml.Encoder, local, value string) {
	el := startEl(local)
	_ = enc.EncodeToken(el)
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(el.End())
}

// tribNacCode limpa os pontos do item LC 116 e completa com zeros à esquerda
// até 6 dígitos (formato de cTribNac).
func tribNacCode(codigoLC116 string) string {
	codigo := strings.ReplaceAll(codigoLC116, ".", "")
	for len(codigo) < 6 {
		codigo = "0" + codigo
	}
	return codigo
}

// formatValor valores monetários e percentuais sempre com 2 casas decimais.
func formatValor(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func padLeftSpaces(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s
}
