package nfse_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalgo/nfse-nacional/pkg/nfse"
)

// O identificador da DPS é determinístico:
//
//	DPS + cLocEmi(7) + tpInsc(1) + CNPJ(14) + serie(5) + nDPS(15) = 45 caracteres
//
// Vetor montado por concatenação: município 3550308 (São Paulo), indicador 2
// (homologação), CNPJ 11222333000181, série 900, número 1.
const testIDDPSEsperado = "DPS355030821122233300018100900000000000000001"

func TestGenerateDPSID_VectorExato(t *testing.T) {
	id, err := nfse.GenerateDPSID(3550308, '2', "11222333000181", "900", 1)
	require.NoError(t, err)
	assert.Equal(t, testIDDPSEsperado, id)
	assert.Len(t, id, 45)
}

func TestGenerateDPSID_Deterministico(t *testing.T) {
	id1, err1 := nfse.GenerateDPSID(3550308, '2', "11222333000181", "900", 42)
	id2, err2 := nfse.GenerateDPSID(3550308, '2', "11222333000181", "900", 42)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, id1, id2, "mesma entrada deve produzir o mesmo identificador")
}

func TestGenerateDPSID_CNPJComPontuacao(t *testing.T) {
	id, err := nfse.GenerateDPSID(3550308, '2', "11.222.333/0001-81", "900", 1)
	require.NoError(t, err)
	assert.Equal(t, testIDDPSEsperado, id)
}

func TestGenerateDPSID_Padrao(t *testing.T) {
	pattern := regexp.MustCompile(`^DPS\d{42}$`)
	for _, numero := range []int64{1, 999, 3526016, 999999999999999} {
		id, err := nfse.GenerateDPSID(1302603, '1', "11222333000181", "1", numero)
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
		assert.Len(t, id, 45)
	}
}

func TestGenerateDPSID_Invalidos(t *testing.T) {
	cases := []struct {
		nome      string
		municipio int
		indicador byte
		cnpj      string
		serie     string
		numero    int64
	}{
		{"municipio curto", 123456, '2', "11222333000181", "900", 1},
		{"municipio longo", 12345678, '2', "11222333000181", "900", 1},
		{"indicador nao numerico", 3550308, 'X', "11222333000181", "900", 1},
		{"cnpj curto", 3550308, '2', "112223330001", "900", 1},
		{"serie vazia", 3550308, '2', "11222333000181", "", 1},
		{"serie longa", 3550308, '2', "11222333000181", "123456", 1},
		{"serie nao numerica", 3550308, '2', "11222333000181", "A1", 1},
		{"numero zero", 3550308, '2', "11222333000181", "900", 0},
		{"numero negativo", 3550308, '2', "11222333000181", "900", -1},
	}
	for _, tc := range cases {
		t.Run(tc.nome, func(t *testing.T) {
			_, err := nfse.GenerateDPSID(tc.municipio, tc.indicador, tc.cnpj, tc.serie, tc.numero)
			require.Error(t, err)
			var formatErr *nfse.FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestValidateDPSID(t *testing.T) {
	require.NoError(t, nfse.ValidateDPSID(testIDDPSEsperado))

	assert.Error(t, nfse.ValidateDPSID(""), "vazio")
	assert.Error(t, nfse.ValidateDPSID(testIDDPSEsperado[:44]), "44 caracteres")
	assert.Error(t, nfse.ValidateDPSID(testIDDPSEsperado+"1"), "46 caracteres")
	assert.Error(t, nfse.ValidateDPSID("XPS"+testIDDPSEsperado[3:]), "prefixo errado")
	assert.Error(t, nfse.ValidateDPSID("DPS35503082112223330001810090000000000000000X"), "letra no corpo")
}
