package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/tokenbank/bank-contract/rpc/bank"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the bank contract deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions to the
	// blockchain.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Prm groups parameters of the bank contract deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// It becomes the ledger owner.
	LocalAccount *wallet.Account

	Contract CommonDeployPrm

	// NEP-17 token accepted by the ledger.
	Currency util.Uint160
}

// UpdatePrm groups parameters of the bank contract update procedure.
type UpdatePrm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance the contract is deployed to.
	Blockchain Blockchain

	// Ledger owner account (must be unlocked).
	LocalAccount *wallet.Account

	Contract CommonDeployPrm

	// Address of the deployed contract.
	Address util.Uint160
}

var errMissingContract = errors.New("contract is missing on the chain")

// Deploy deploys the bank contract to the blockchain and returns its address.
// Deploy does nothing if the contract with the same NEF and manifest name has
// already been deployed by the local account. Deploy waits until the
// transaction is accepted and fails if it has not been executed successfully.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	var (
		sender  = prm.LocalAccount.ScriptHash()
		address = state.CreateContractHash(sender, prm.Contract.NEF.Checksum, prm.Contract.Manifest.Name)
		l       = prm.Logger.With(zap.Stringer("address", address))
	)

	_, err := readContractState(prm.Blockchain, address)
	if err == nil {
		l.Info("bank contract is already deployed")
		return address, nil
	}

	if !errors.Is(err, errMissingContract) {
		return util.Uint160{}, err
	}

	act, err := newDeployActor(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, err
	}

	l.Info("sending deploy transaction...", zap.Stringer("currency", prm.Currency))

	txHash, vub, err := management.New(act).Deploy(&prm.Contract.NEF, &prm.Contract.Manifest, []any{prm.Currency})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("send deploy transaction: %w", err)
	}

	l.Info("deploy transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	err = bank.CheckResult(act.WaitAny(ctx, vub, txHash))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("deploy bank contract: %w", err)
	}

	l.Info("bank contract successfully deployed", zap.Stringer("tx", txHash))

	return address, nil
}

// Update updates the deployed bank contract. Update does nothing if the
// on-chain NEF matches the local one.
func Update(ctx context.Context, prm UpdatePrm) error {
	l := prm.Logger.With(zap.Stringer("address", prm.Address))

	st, err := readContractState(prm.Blockchain, prm.Address)
	if err != nil {
		return err
	}

	if st.NEF.Checksum == prm.Contract.NEF.Checksum {
		l.Info("bank contract is already up to date", zap.Uint16("update counter", st.UpdateCounter))
		return nil
	}

	bNEF, err := prm.Contract.NEF.Bytes()
	if err != nil {
		return fmt.Errorf("encode NEF: %w", err)
	}

	jManifest, err := json.Marshal(prm.Contract.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	act, err := newDeployActor(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return err
	}

	txHash, vub, err := bank.New(act, prm.Address).Update(bNEF, jManifest, nil)
	if err != nil {
		return fmt.Errorf("send update transaction: %w", bank.ParseError(err))
	}

	l.Info("update transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	err = bank.CheckResult(act.WaitAny(ctx, vub, txHash))
	if err != nil {
		return fmt.Errorf("update bank contract: %w", err)
	}

	l.Info("bank contract successfully updated", zap.Stringer("tx", txHash))

	return nil
}

func readContractState(b Blockchain, address util.Uint160) (*state.Contract, error) {
	st, err := b.GetContractStateByHash(address)
	if err != nil {
		if strings.Contains(err.Error(), "Unknown contract") {
			return nil, fmt.Errorf("%w: %s", errMissingContract, address.StringLE())
		}

		return nil, fmt.Errorf("read state of contract %s: %w", address.StringLE(), err)
	}

	return st, nil
}

func newDeployActor(b Blockchain, acc *wallet.Account) (*actor.Actor, error) {
	act, err := actor.NewTuned(b, []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account: acc.ScriptHash(),
			Scopes:  transaction.CalledByEntry,
		},
		Account: acc,
	}}, actor.Options{
		CheckerModifier: deployTransactionModifier(func() uint32 {
			height, err := b.GetBlockCount()
			if err != nil {
				return 0
			}
			return height
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	return act, nil
}

// returns actor.TransactionCheckerModifier which checks that invocation
// finished with 'HALT' state and, if so, sets transaction's nonce and
// ValidUntilBlock to 100*N and 100*(N+1) correspondingly, where
// 100*N <= current height < 100*(N+1). Repeated deploy and update requests
// within the span produce the same transaction.
func deployTransactionModifier(getBlockchainHeight func() uint32) actor.TransactionCheckerModifier {
	return func(r *result.Invoke, tx *transaction.Transaction) error {
		err := actor.DefaultCheckerModifier(r, tx)
		if err != nil {
			return err
		}

		curHeight := getBlockchainHeight()
		const span = 100
		n := curHeight / span

		tx.Nonce = n * span

		if math.MaxUint32-span > tx.Nonce {
			tx.ValidUntilBlock = tx.Nonce + span
		} else {
			tx.ValidUntilBlock = math.MaxUint32
		}

		return nil
	}
}
