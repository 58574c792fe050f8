package nfse

import (
	"fmt"
	"regexp"

	"github.com/fiscalgo/nfse-nacional/pkg/fiscal"
)

// Identificador da DPS: 45 caracteres no formato
//
//	DPS + cLocEmi(7) + tpInsc(1) + CNPJ(14) + serie(5, zeros à esquerda) + nDPS(15, zeros à esquerda)
//
// Determinístico e sem I/O; qualquer id fornecido pelo chamador passa pelo
// mesmo padrão antes de seguir para serialização.

const dpsIDLength = 45

var dpsIDPattern = regexp.MustCompile(`^DPS\d{42}$`)

// GenerateDPSID monta o identificador da DPS a partir dos campos do
// prestador, do dígito indicador de inscrição e da numeração.
func GenerateDPSID(codigoMunicipio int, indicador byte, cnpj, serie string, numero int64) (string, error) {
	if codigoMunicipio < 1000000 || codigoMunicipio > 9999999 {
		return "", newFormatError([]FieldError{{"codigo_municipio", "codigo_municipio deve ter 7 digitos"}})
	}
	if indicador < '0' || indicador > '9' {
		return "", newFormatError([]FieldError{{"indicador", "indicador deve ser um digito"}})
	}
	digits := fiscal.OnlyDigits(cnpj)
	if len(digits) != 14 {
		return "", newFormatError([]FieldError{{"cnpj", "CNPJ deve conter 14 digitos"}})
	}
	if !seriePattern.MatchString(serie) {
		return "", newFormatError([]FieldError{{"serie", "serie deve ser numerica com 1 a 5 digitos"}})
	}
	if numero <= 0 {
		return "", newFormatError([]FieldError{{"numero", "numero deve ser maior que zero"}})
	}
	id := fmt.Sprintf("DPS%07d%c%s%05s%015d", codigoMunicipio, indicador, digits, serie, numero)
	if len(id) != dpsIDLength {
		// Só alcançável se algum campo furar os limites já validados.
		return "", newFormatError([]FieldError{{"id_dps", fmt.Sprintf("id gerado com %d caracteres", len(id))}})
	}
	return id, nil
}

// ValidateDPSID rejeita qualquer identificador fora do padrão de 45
// caracteres (prefixo DPS + 42 dígitos).
func ValidateDPSID(id string) error {
	if len(id) != dpsIDLength {
		return fmt.Errorf("id_dps deve ter 45 caracteres, encontrados %d", len(id))
	}
	if !dpsIDPattern.MatchString(id) {
		return fmt.Errorf("id_dps deve seguir o padrao DPS + 42 digitos")
	}
	return nil
}

// EnsureID devolve o identificador da DPS, gerando-o quando o chamador não
// definiu um. O dígito indicador segue o tipo de ambiente do emissor.
func (d *DPS) EnsureID(ambiente Ambiente) (string, error) {
	if d.IDDPS != "" {
		if err := ValidateDPSID(d.IDDPS); err != nil {
			return "", newFormatError([]FieldError{{"id_dps", err.Error()}})
		}
		return d.IDDPS, nil
	}
	id, err := GenerateDPSID(
		d.Prestador.Endereco.CodigoMunicipio,
		ambiente.TipoAmbiente()[0],
		d.Prestador.CNPJ,
		d.Serie,
		d.Numero,
	)
	if err != nil {
		return "", err
	}
	d.IDDPS = id
	return id, nil
}
