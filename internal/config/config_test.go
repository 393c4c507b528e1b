package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:30333", cfg.RPC.Endpoint)
	require.Equal(t, time.Minute, cfg.RPC.WaitTimeout)
	require.Equal(t, ":8080", cfg.Server.Address)

	currency, err := cfg.CurrencyHash()
	require.NoError(t, err)
	require.Equal(t, gasHash, currency.StringLE())

	_, err = cfg.ContractHash()
	require.Error(t, err)

	l, err := cfg.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestLoadFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bank.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
rpc:
  endpoint: http://node:20332
  wait_timeout: 30s
contract:
  hash: 0x0102030405060708090a0b0c0d0e0f1011121314
journal:
  path: /var/lib/bank/journal.db
logger:
  level: debug
`), 0o644))

	t.Setenv("BANK_SERVER_ADDRESS", ":9090")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)
	require.Equal(t, "http://node:20332", cfg.RPC.Endpoint)
	require.Equal(t, 30*time.Second, cfg.RPC.WaitTimeout)
	require.Equal(t, "/var/lib/bank/journal.db", cfg.Journal.Path)
	require.Equal(t, ":9090", cfg.Server.Address)
	require.Equal(t, "debug", cfg.Logger.Level)

	h, err := cfg.ContractHash()
	require.NoError(t, err)
	require.Equal(t, "0102030405060708090a0b0c0d0e0f1011121314", h.StringLE())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "bank.yml")
	require.NoError(t, os.WriteFile(file, []byte("logger:\n  level: loud\n"), 0o644))

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	_, err = cfg.NewLogger()
	require.Error(t, err)
}
