package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tokenbank/bank-contract/internal/config"
	"go.uber.org/zap"
)

var (
	cfgFile string

	v      = viper.New()
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bankctl",
	Short: "Bank contract operator tool",
	Long: `bankctl deploys the Bank contract to a Neo network, manages ledger
accounts on behalf of the wallet owner and serves read-only ledger API.

Settings are read from the YAML file (--config or ./bank.yml), BANK_*
environment variables (e.g. BANK_RPC_ENDPOINT) and command flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		logger, err = cfg.NewLogger()
		if err != nil {
			return err
		}

		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ./bank.yml)")
	flags.StringP("rpc", "r", "", "Neo RPC endpoint")
	flags.StringP("wallet", "w", "", "path to NEP-6 wallet")
	flags.StringP("address", "a", "", "wallet account address (default account if empty)")
	flags.String("contract", "", "Bank contract address (LE hex)")
	flags.String("log-level", "", "logger level")

	for key, flag := range map[string]string{
		"rpc.endpoint":   "rpc",
		"wallet.path":    "wallet",
		"wallet.address": "address",
		"contract.hash":  "contract",
		"logger.level":   "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind %s flag: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		deployCmd,
		updateCmd,
		createAccountCmd,
		depositCmd,
		withdrawCmd,
		transferCmd,
		changeCurrencyCmd,
		accountsCmd,
		balanceCmd,
		infoCmd,
		dumpCmd,
		serveCmd,
	)
}
