// Package fiscal contém validações e formatação de documentos fiscais
// brasileiros (CNPJ, CPF) usados pela NFS-e Nacional.
package fiscal

import (
	"fmt"
	"strings"
	"unicode"
)

// pesos para o cálculo dos dígitos verificadores do CNPJ (módulo 11).
// Aplicados aos 12 primeiros dígitos (1º DV) e aos 13 primeiros (2º DV).
var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ verifica se o CNPJ (com ou sem pontuação) tem 14 dígitos e
// dígitos verificadores corretos. Sequências repetidas ("11111111111111")
// são rejeitadas mesmo quando o módulo 11 fecharia.
func ValidateCNPJ(cnpj string) error {
	digits := OnlyDigits(cnpj)
	if len(digits) != 14 {
		return fmt.Errorf("fiscal: CNPJ deve conter 14 digitos, encontrados %d", len(digits))
	}
	if allSameDigit(digits) {
		return fmt.Errorf("fiscal: CNPJ invalido (sequencia repetida)")
	}
	d1 := cnpjCheckDigit(digits[:12], cnpjWeights1[:])
	d2 := cnpjCheckDigit(digits[:13], cnpjWeights2[:])
	if digits[12] != d1 || digits[13] != d2 {
		return fmt.Errorf("fiscal: CNPJ invalido (digitos verificadores incorretos)")
	}
	return nil
}

func cnpjCheckDigit(base string, weights []int) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder < 2 {
		return '0'
	}
	return byte('0' + 11 - remainder)
}

// ValidateCPF verifica se o CPF (com ou sem pontuação) tem 11 dígitos e
// dígitos verificadores corretos segundo o algoritmo da Receita Federal.
func ValidateCPF(cpf string) error {
	digits := OnlyDigits(cpf)
	if len(digits) != 11 {
		return fmt.Errorf("fiscal: CPF deve conter 11 digitos, encontrados %d", len(digits))
	}
	if allSameDigit(digits) {
		return fmt.Errorf("fiscal: CPF invalido (sequencia repetida)")
	}
	d1 := cpfCheckDigit(digits[:9], 10)
	d2 := cpfCheckDigit(digits[:10], 11)
	if digits[9] != d1 || digits[10] != d2 {
		return fmt.Errorf("fiscal: CPF invalido (digitos verificadores incorretos)")
	}
	return nil
}

func cpfCheckDigit(base string, factor int) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * (factor - i)
	}
	remainder := (sum * 10) % 11
	if remainder >= 10 {
		return '0'
	}
	return byte('0' + remainder)
}

// FormatCNPJ devolve o CNPJ pontuado (00.000.000/0000-00). Entradas com
// tamanho diferente de 14 dígitos voltam sem alteração.
func FormatCNPJ(cnpj string) string {
	d := OnlyDigits(cnpj)
	if len(d) != 14 {
		return d
	}
	return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
}

// FormatCPF devolve o CPF pontuado (000.000.000-00).
func FormatCPF(cpf string) string {
	d := OnlyDigits(cpf)
	if len(d) != 11 {
		return d
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

// OnlyDigits remove todo caractere que não seja dígito 0-9.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return len(s) > 0
}
