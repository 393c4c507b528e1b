package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/spf13/cobra"
	"github.com/tokenbank/bank-contract/rpc/bank"
)

// storage layout of the Bank contract.
const (
	configKey     = "config"
	accountPrefix = 'a'
	indexPrefix   = 'i'
	counterPrefix = 'c'
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print all Bank contract storage records at the latest state root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		h, err := cfg.ContractHash()
		if err != nil {
			return err
		}

		b, err := newRemoteBlockchain(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return fmt.Errorf("init remote blockchain: %w", err)
		}
		defer b.close()

		err = b.iterateContractStorage(h, func(key, value []byte) error {
			return printRecord(cmd.OutOrStdout(), key, value)
		})
		if err != nil {
			return fmt.Errorf("iterate bank contract storage: %w", err)
		}

		return nil
	},
}

func printRecord(w io.Writer, key, value []byte) error {
	s, err := decodeRecord(key, value)
	if err != nil {
		return fmt.Errorf("decode record %x: %w", key, err)
	}

	_, err = fmt.Fprintln(w, s)
	return err
}

func decodeRecord(key, value []byte) (string, error) {
	if string(key) == configKey {
		item, err := stackitem.Deserialize(value)
		if err != nil {
			return "", err
		}

		arr, ok := item.Value().([]stackitem.Item)
		if !ok || len(arr) != 2 {
			return "", errors.New("invalid config structure")
		}

		owner, err := itemToHash(arr[0])
		if err != nil {
			return "", fmt.Errorf("owner: %w", err)
		}

		currency, err := itemToHash(arr[1])
		if err != nil {
			return "", fmt.Errorf("currency: %w", err)
		}

		return fmt.Sprintf("config owner=%s currency=%s", address.Uint160ToString(owner), currency.StringLE()), nil
	}

	if len(key) == 0 {
		return "", errors.New("empty key")
	}

	switch key[0] {
	case accountPrefix:
		item, err := stackitem.Deserialize(value)
		if err != nil {
			return "", err
		}

		var acc bank.BankAccount
		if err := acc.FromStackItem(item); err != nil {
			return "", err
		}

		return fmt.Sprintf("account name=%q owner=%s balance=%s",
			key[1:], address.Uint160ToString(acc.Owner), acc.Balance), nil
	case indexPrefix:
		if len(key) <= 1+util.Uint160Size {
			return "", errors.New("invalid index key")
		}

		owner, err := util.Uint160DecodeBytesBE(key[1 : 1+util.Uint160Size])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("index owner=%s seq=%s name=%q",
			address.Uint160ToString(owner), key[1+util.Uint160Size:], value), nil
	case counterPrefix:
		owner, err := util.Uint160DecodeBytesBE(key[1:])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("counter owner=%s accounts=%s",
			address.Uint160ToString(owner), bigint.FromBytes(value)), nil
	default:
		return "", fmt.Errorf("unknown key prefix %q", key[0])
	}
}

func itemToHash(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}

	return util.Uint160DecodeBytesBE(b)
}
