package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/tokenbank/bank-contract/internal/config"
	"github.com/tokenbank/bank-contract/rpc/bank"
	"go.uber.org/zap"
)

// wrapper over rpcNeo providing blockchain services needed for bank commands.
type remoteBlockchain struct {
	rpc   *rpcclient.Client
	actor *actor.Actor

	// bounds waiting for transactions
	ctx         context.Context
	log         *zap.Logger
	waitTimeout time.Duration
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection. Transactions are signed by the given account,
// random account is used for read-only commands if acc is nil.
func newRemoteBlockchain(ctx context.Context, cfg *config.Config, log *zap.Logger, acc *wallet.Account) (*remoteBlockchain, error) {
	if acc == nil {
		var err error

		acc, err = wallet.NewAccount()
		if err != nil {
			return nil, fmt.Errorf("generate new Neo account: %w", err)
		}
	}

	c, err := rpcclient.New(ctx, cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("RPC client init: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init actor: %w", err)
	}

	return &remoteBlockchain{
		rpc:         c,
		actor:       act,
		ctx:         ctx,
		log:         log,
		waitTimeout: cfg.RPC.WaitTimeout,
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// bankContract returns Bank contract client signing transactions with the
// local account.
func (x *remoteBlockchain) bankContract(h util.Uint160) *bank.Contract {
	return bank.New(x.actor, h)
}

// wait waits for the sent transaction to be accepted and checks that it has
// been executed successfully. Contract failures are wrapped with the
// corresponding bank errors.
func (x *remoteBlockchain) wait(txHash util.Uint256, vub uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", bank.ParseError(err))
	}

	x.log.Info("transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	ctx, cancel := context.WithTimeout(x.ctx, x.waitTimeout)
	defer cancel()

	aer, err := x.actor.WaitAny(ctx, vub, txHash)
	if err = bank.CheckResult(aer, err); err != nil {
		return nil, err
	}

	x.log.Info("transaction accepted", zap.Stringer("tx", txHash), zap.Int64("gas consumed", aer.GasConsumed))

	return aer, nil
}

// iterateContractStorage iterates over all storage items of the Neo smart
// contract referenced by given address and passes them into f.
// iterateContractStorage breaks on any f's error and returns it.
func (x *remoteBlockchain) iterateContractStorage(contract util.Uint160, f func(key, value []byte) error) error {
	nLatestBlock, err := x.actor.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}

	stateRoot, err := x.rpc.GetStateRootByHeight(nLatestBlock - 1)
	if err != nil {
		return fmt.Errorf("get state root at penult block #%d: %w", nLatestBlock-1, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items of the requested contract at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return err
			}
		}

		if !res.Truncated {
			return nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}

// loadAccount opens the configured NEP-6 wallet and decrypts the configured
// account (or the default one). Closing the returned wallet wipes private
// keys of its accounts, so it must stay open while the account signs.
func loadAccount(cfg *config.Config) (*wallet.Wallet, *wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Wallet.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open wallet %s: %w", cfg.Wallet.Path, err)
	}

	acc, err := decryptAccount(w, cfg.Wallet.Address, cfg.Wallet.Password)
	if err != nil {
		w.Close()
		return nil, nil, err
	}

	return w, acc, nil
}

func decryptAccount(w *wallet.Wallet, addr, password string) (*wallet.Account, error) {
	var (
		h   util.Uint160
		err error
	)

	if addr != "" {
		h, err = address.StringToUint160(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet account address: %w", err)
		}
	} else {
		h = w.GetChangeAddress()
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(h))
	}

	err = acc.Decrypt(password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}
