// Package config carrega a configuração da aplicação via Viper (variáveis de
// ambiente; sem parsing de flags de linha de comando).
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa a configuração da aplicação.
type Config struct {
	App  AppConfig
	NFSe NFSeConfig
}

// AppConfig configuração geral.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// NFSeConfig configuração do cliente NFS-e Nacional.
type NFSeConfig struct {
	Ambiente     string        // "homologacao" ou "producao"
	CertPath     string        // caminho do certificado .pfx/.p12 (ICP-Brasil)
	CertPassword string        // senha do contêiner PKCS#12
	Timeout      time.Duration // timeout por chamada HTTP
}

// Load lê a configuração de variáveis de ambiente. Nomes esperados:
// APP_ENV, APP_NAME, LOG_LEVEL, NFSE_AMBIENTE, NFSE_CERT_PATH,
// NFSE_CERT_PASSWORD, NFSE_TIMEOUT_SECONDS.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "nfse-nacional"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		NFSe: NFSeConfig{
			Ambiente:     getString(v, "NFSE_AMBIENTE", "homologacao"),
			CertPath:     getString(v, "NFSE_CERT_PATH", ""),
			CertPassword: getString(v, "NFSE_CERT_PASSWORD", ""),
			Timeout:      time.Duration(getInt(v, "NFSE_TIMEOUT_SECONDS", 30)) * time.Second,
		},
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
