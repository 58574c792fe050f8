package fiscal

// =============================================================================
// Unidades da Federação (IBGE) — os 27 códigos válidos para o campo uf.
// =============================================================================

// ValidUFs contém as 26 UFs mais o Distrito Federal.
var ValidUFs = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MT": true, "MS": true,
	"MG": true, "PA": true, "PB": true, "PR": true, "PE": true, "PI": true,
	"RJ": true, "RN": true, "RS": true, "RO": true, "RR": true, "SC": true,
	"SP": true, "SE": true, "TO": true,
}

// IsValidUF reporta se a sigla (maiúscula ou minúscula) é uma UF conhecida.
func IsValidUF(uf string) bool {
	if len(uf) != 2 {
		return false
	}
	upper := [2]byte{uf[0], uf[1]}
	for i, c := range upper {
		if c >= 'a' && c <= 'z' {
			upper[i] = c - 'a' + 'A'
		}
	}
	return ValidUFs[string(upper[:])]
}

// NormalizeUF devolve a sigla em maiúsculas, sem validar.
func NormalizeUF(uf string) string {
	out := []byte(uf)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
