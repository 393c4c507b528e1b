package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/spf13/cobra"
	"github.com/tokenbank/bank-contract/contracts"
	"github.com/tokenbank/bank-contract/deploy"
	"github.com/tokenbank/bank-contract/rpc/bank"
	"go.uber.org/zap"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy Bank contract, wallet account becomes the ledger owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		currency, err := cfg.CurrencyHash()
		if err != nil {
			return err
		}

		c, err := contracts.ReadDir(cfg.Contract.Dir)
		if err != nil {
			return err
		}

		w, acc, err := loadAccount(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		b, err := newRemoteBlockchain(cmd.Context(), cfg, logger, acc)
		if err != nil {
			return err
		}
		defer b.close()

		h, err := deploy.Deploy(cmd.Context(), deploy.Prm{
			Logger:       logger,
			Blockchain:   b.rpc,
			LocalAccount: acc,
			Contract:     deploy.CommonDeployPrm{NEF: c.NEF, Manifest: c.Manifest},
			Currency:     currency,
		})
		if err != nil {
			return err
		}

		cmd.Println(h.StringLE())
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update deployed Bank contract, wallet account must be the ledger owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		h, err := cfg.ContractHash()
		if err != nil {
			return err
		}

		c, err := contracts.ReadDir(cfg.Contract.Dir)
		if err != nil {
			return err
		}

		w, acc, err := loadAccount(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		b, err := newRemoteBlockchain(cmd.Context(), cfg, logger, acc)
		if err != nil {
			return err
		}
		defer b.close()

		return deploy.Update(cmd.Context(), deploy.UpdatePrm{
			Logger:       logger,
			Blockchain:   b.rpc,
			LocalAccount: acc,
			Contract:     deploy.CommonDeployPrm{NEF: c.NEF, Manifest: c.Manifest},
			Address:      h,
		})
	},
}

var createAccountCmd = &cobra.Command{
	Use:   "create-account <name>",
	Short: "Create ledger account owned by the wallet account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBank(cmd.Context(), func(b *remoteBlockchain, c *bank.Contract) error {
			owner := b.actor.Sender()
			_, err := b.wait(c.CreateAccount(owner, args[0]))
			return err
		})
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit <name> <amount>",
	Short: "Pay currency tokens from the wallet account to the ledger account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		return withBank(cmd.Context(), func(b *remoteBlockchain, c *bank.Contract) error {
			// currency can be changed by the owner at any time
			currency, err := c.Currency()
			if err != nil {
				return fmt.Errorf("get ledger currency: %w", err)
			}

			_, err = b.wait(c.Deposit(currency, b.actor.Sender(), amount, args[0]))
			return err
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <name> <amount>",
	Short: "Pay currency tokens from the ledger account to the wallet account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		return withBank(cmd.Context(), func(b *remoteBlockchain, c *bank.Contract) error {
			_, err := b.wait(c.Withdraw(args[0], amount))
			return err
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <from> <to> <amount>",
	Short: "Move funds between ledger accounts",
	Long: `Move funds between ledger accounts. Transfers to accounts of other owners
are charged with 1% fee withheld from the credited amount.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		return withBank(cmd.Context(), func(b *remoteBlockchain, c *bank.Contract) error {
			aer, err := b.wait(c.Transfer(args[0], args[1], amount))
			if err != nil {
				return err
			}

			for i := range aer.Events {
				if aer.Events[i].ScriptHash != c.Hash() || aer.Events[i].Name != "AccountTransfer" {
					continue
				}

				var ev bank.AccountTransferEvent
				if err := ev.FromStackItem(aer.Events[i].Item); err != nil {
					return fmt.Errorf("decode transfer event: %w", err)
				}

				cmd.Printf("transferred %s, fee %s\n", ev.Amount, ev.Fee)
			}

			return nil
		})
	},
}

var changeCurrencyCmd = &cobra.Command{
	Use:   "change-currency <token>",
	Short: "Replace ledger currency, wallet account must be the ledger owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		currency, err := parseHash(args[0])
		if err != nil {
			return err
		}

		return withBank(cmd.Context(), func(b *remoteBlockchain, c *bank.Contract) error {
			_, err := b.wait(c.ChangeCurrency(currency))
			return err
		})
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts [owner]",
	Short: "List ledger accounts of the owner (wallet account by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			owner util.Uint160
			err   error
		)

		if len(args) > 0 {
			owner, err = parseHash(args[0])
			if err != nil {
				return err
			}
		} else {
			w, acc, err := loadAccount(cfg)
			if err != nil {
				return err
			}
			owner = acc.ScriptHash()
			w.Close()
		}

		return withReader(cmd.Context(), func(r *bank.ContractReader) error {
			names, err := r.AccountsOf(owner)
			if err != nil {
				return bank.ParseError(err)
			}

			for i := range names {
				cmd.Println(names[i])
			}

			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <name>",
	Short: "Print balance of the ledger account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReader(cmd.Context(), func(r *bank.ContractReader) error {
			b, err := r.BalanceOf(args[0])
			if err != nil {
				return bank.ParseError(err)
			}

			cmd.Println(b)
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Print ledger settings or the ledger account record",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReader(cmd.Context(), func(r *bank.ContractReader) error {
			if len(args) > 0 {
				acc, err := r.AccountInfo(args[0])
				if err != nil {
					return bank.ParseError(err)
				}

				cmd.Printf("owner: %s\nbalance: %s\n", address.Uint160ToString(acc.Owner), acc.Balance)
				return nil
			}

			owner, err := r.Owner()
			if err != nil {
				return err
			}

			currency, err := r.Currency()
			if err != nil {
				return err
			}

			version, err := r.Version()
			if err != nil {
				return err
			}

			cmd.Printf("owner: %s\ncurrency: %s\nversion: %s\n",
				address.Uint160ToString(owner), currency.StringLE(), version)
			return nil
		})
	},
}

// withBank runs f with Bank contract client signing transactions with the
// configured wallet account.
func withBank(ctx context.Context, f func(*remoteBlockchain, *bank.Contract) error) error {
	h, err := cfg.ContractHash()
	if err != nil {
		return err
	}

	w, acc, err := loadAccount(cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	b, err := newRemoteBlockchain(ctx, cfg, logger.With(zap.Stringer("contract", h)), acc)
	if err != nil {
		return err
	}
	defer b.close()

	return f(b, b.bankContract(h))
}

// withReader runs f with read-only Bank contract client.
func withReader(ctx context.Context, f func(*bank.ContractReader) error) error {
	h, err := cfg.ContractHash()
	if err != nil {
		return err
	}

	b, err := newRemoteBlockchain(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer b.close()

	return f(bank.NewReader(b.actor, h))
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	if amount.Sign() < 0 {
		return nil, errors.New("negative amount")
	}

	return amount, nil
}

// parseHash accepts both Neo address and LE hex script hash.
func parseHash(s string) (util.Uint160, error) {
	if h, err := address.StringToUint160(s); err == nil {
		return h, nil
	}

	h, err := util.Uint160DecodeStringLE(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid address %q", s)
	}

	return h, nil
}
