package main

import (
	"context"
	"os"

	"github.com/fiscalgo/nfse-nacional/pkg/config"
	"github.com/fiscalgo/nfse-nacional/pkg/logger"
	"github.com/fiscalgo/nfse-nacional/pkg/nfse"
	"github.com/fiscalgo/nfse-nacional/pkg/nfse/xmldsig"
)

// Binário utilitário de verificação: monta o cliente a partir das variáveis
// de ambiente e consulta a NFS-e (NFSE_CHAVE_ACESSO) e/ou a situação de
// convênio de um município (NFSE_MUNICIPIO). Toda a configuração entra por
// ambiente; não há parsing de flags.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuracao: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente", cfg.NFSe.Ambiente).
		Msg("iniciando cliente NFS-e Nacional")

	client, err := nfse.NewClient(nfse.ClientConfig{
		Ambiente: nfse.Ambiente(cfg.NFSe.Ambiente),
		Certificados: xmldsig.P12Provider{
			Path:     cfg.NFSe.CertPath,
			Password: cfg.NFSe.CertPassword,
		},
		Signer:  xmldsig.NewService(),
		Timeout: cfg.NFSe.Timeout,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("montar cliente")
	}

	ctx := context.Background()

	if chave := os.Getenv("NFSE_CHAVE_ACESSO"); chave != "" {
		result, err := client.QueryNFSe(ctx, chave)
		if err != nil {
			log.Fatal().Err(err).Str("chave_acesso", chave).Msg("consultar NFS-e")
		}
		log.Info().
			Str("chave_acesso", result.ChaveAcesso).
			Str("numero", result.NumeroNFSe).
			Str("situacao", string(result.Status)).
			Str("valor_servicos", result.ValorServicos.StringFixed(2)).
			Msg("NFS-e consultada")
	}

	if mun := os.Getenv("NFSE_MUNICIPIO"); mun != "" {
		codigo := parseMunicipio(mun, log)
		convenio, err := client.QueryConvenioMunicipal(ctx, codigo)
		if err != nil {
			log.Fatal().Err(err).Int("municipio", codigo).Msg("consultar convenio")
		}
		log.Info().
			Int("municipio", convenio.CodigoMunicipio).
			Bool("aderido", convenio.Aderido).
			Str("data_adesao", convenio.DataAdesao).
			Msg("convenio consultado")
	}
}

func parseMunicipio(s string, log *logger.Logger) int {
	codigo := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			log.Fatal().Str("municipio", s).Msg("NFSE_MUNICIPIO deve ser o codigo IBGE de 7 digitos")
		}
		codigo = codigo*10 + int(r-'0')
	}
	return codigo
}
