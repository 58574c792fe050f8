package nfse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fiscalgo/nfse-nacional/pkg/fiscal"
)

// Validação explícita do modelo: cada regra é um predicado independente e o
// conjunto roda uma única vez, antes de qualquer serialização ou I/O.
// Validate normaliza os campos de documento (pontuação removida, UF em
// maiúsculas) e devolve a lista completa de violações — vazia quando o
// documento está apto a ser serializado e assinado.

var (
	competenciaPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	seriePattern       = regexp.MustCompile(`^\d{1,5}$`)
	lc116Pattern       = regexp.MustCompile(`^\d{6}$`)
	nbsPattern         = regexp.MustCompile(`^\d{9}$`)
	telefonePattern    = regexp.MustCompile(`^\d{6,20}$`)
)

// Validate confere as invariantes do endereço.
func (e *Endereco) Validate() []FieldError {
	var errs []FieldError

	if e.Logradouro == "" {
		errs = append(errs, FieldError{"logradouro", "obrigatorio"})
	}
	if e.Numero == "" {
		errs = append(errs, FieldError{"numero", "obrigatorio"})
	}
	if e.Bairro == "" {
		errs = append(errs, FieldError{"bairro", "obrigatorio"})
	}
	if e.CodigoMunicipio < 1000000 || e.CodigoMunicipio > 9999999 {
		errs = append(errs, FieldError{"codigo_municipio", "codigo_municipio deve ter 7 digitos (codigo IBGE)"})
	}
	if !fiscal.IsValidUF(e.UF) {
		errs = append(errs, FieldError{"uf", fmt.Sprintf("UF invalida: %q", e.UF)})
	} else {
		e.UF = fiscal.NormalizeUF(e.UF)
	}
	cep := fiscal.OnlyDigits(e.CEP)
	if len(cep) != 8 {
		errs = append(errs, FieldError{"cep", "CEP deve conter 8 digitos"})
	} else {
		e.CEP = cep
	}
	return errs
}

// Validate confere as invariantes do prestador.
func (p *Prestador) Validate() []FieldError {
	var errs []FieldError

	cnpj := fiscal.OnlyDigits(p.CNPJ)
	if err := fiscal.ValidateCNPJ(cnpj); err != nil {
		errs = append(errs, FieldError{"cnpj", err.Error()})
	} else {
		p.CNPJ = cnpj
	}
	if p.InscricaoMunicipal == "" {
		errs = append(errs, FieldError{"inscricao_municipal", "obrigatoria"})
	}
	if p.RazaoSocial == "" {
		errs = append(errs, FieldError{"razao_social", "obrigatoria"})
	}
	if p.Telefone != "" {
		fone := fiscal.OnlyDigits(p.Telefone)
		if !telefonePattern.MatchString(fone) {
			errs = append(errs, FieldError{"telefone", "Telefone deve conter entre 6 e 20 digitos"})
		} else {
			p.Telefone = fone
		}
	}
	errs = append(errs, prefixFields("endereco.", p.Endereco.Validate())...)
	return errs
}

// Validate confere as invariantes do tomador. Exatamente um entre CPF e CNPJ
// deve estar presente.
func (t *Tomador) Validate() []FieldError {
	var errs []FieldError

	cpf := fiscal.OnlyDigits(t.CPF)
	cnpj := fiscal.OnlyDigits(t.CNPJ)
	switch {
	case cpf == "" && cnpj == "":
		errs = append(errs, FieldError{"cpf/cnpj", "Tomador deve ter CPF ou CNPJ informado"})
	case cpf != "" && cnpj != "":
		errs = append(errs, FieldError{"cpf/cnpj", "CPF e CNPJ sao mutuamente exclusivos"})
	case cpf != "":
		if err := fiscal.ValidateCPF(cpf); err != nil {
			errs = append(errs, FieldError{"cpf", err.Error()})
		} else {
			t.CPF = cpf
		}
	default:
		if err := fiscal.ValidateCNPJ(cnpj); err != nil {
			errs = append(errs, FieldError{"cnpj", err.Error()})
		} else {
			t.CNPJ = cnpj
		}
	}
	if t.RazaoSocial == "" {
		errs = append(errs, FieldError{"razao_social", "obrigatoria"})
	}
	if t.Endereco != nil {
		errs = append(errs, prefixFields("endereco.", t.Endereco.Validate())...)
	}
	return errs
}

// Validate confere as invariantes da linha de serviço.
func (s *Servico) Validate() []FieldError {
	var errs []FieldError

	codigo := strings.ReplaceAll(s.CodigoLC116, ".", "")
	// Item de 2 níveis (ex.: "04.03") é inválido: o subitem é obrigatório.
	if !lc116Pattern.MatchString(codigo) {
		errs = append(errs, FieldError{"codigo_lc116", "codigo_lc116 deve incluir o subitem completo (ex.: 04.03.01)"})
	}
	if s.CodigoNBS != "" && !nbsPattern.MatchString(s.CodigoNBS) {
		errs = append(errs, FieldError{"codigo_nbs", "codigo_nbs deve conter 9 digitos"})
	}
	if s.Discriminacao == "" {
		errs = append(errs, FieldError{"discriminacao", "obrigatoria"})
	}
	if !s.ValorServicos.IsPositive() {
		errs = append(errs, FieldError{"valor_servicos", "valor_servicos deve ser maior que zero"})
	}
	return errs
}

// Validate confere as invariantes da DPS inteira, incluindo os blocos
// embutidos. Lista vazia = documento pronto para serializar.
func (d *DPS) Validate() []FieldError {
	var errs []FieldError

	if !seriePattern.MatchString(d.Serie) {
		errs = append(errs, FieldError{"serie", "serie deve ser numerica com 1 a 5 digitos"})
	}
	if d.Numero <= 0 {
		errs = append(errs, FieldError{"numero", "numero deve ser maior que zero"})
	}
	if !competenciaPattern.MatchString(d.Competencia) {
		errs = append(errs, FieldError{"competencia", "competencia deve estar no formato YYYY-MM"})
	}
	if d.DataEmissao.IsZero() {
		errs = append(errs, FieldError{"data_emissao", "obrigatoria"})
	}
	if !d.RegimeTributario.Valid() {
		errs = append(errs, FieldError{"regime_tributario", fmt.Sprintf("regime_tributario invalido: %q", d.RegimeTributario)})
	}
	if d.IDDPS != "" {
		if err := ValidateDPSID(d.IDDPS); err != nil {
			errs = append(errs, FieldError{"id_dps", err.Error()})
		}
	}
	errs = append(errs, prefixFields("prestador.", d.Prestador.Validate())...)
	errs = append(errs, prefixFields("tomador.", d.Tomador.Validate())...)
	errs = append(errs, prefixFields("servico.", d.Servico.Validate())...)
	return errs
}

func prefixFields(prefix string, errs []FieldError) []FieldError {
	for i := range errs {
		errs[i].Field = prefix + errs[i].Field
	}
	return errs
}
