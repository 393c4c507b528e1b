// Package bank contains RPC wrappers for Bank contract.
package bank

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// BankAccount is a contract-specific bank.Account type used by its methods.
type BankAccount struct {
	Owner   util.Uint160
	Balance *big.Int
}

// InitEvent represents "Init" event emitted by the contract.
type InitEvent struct {
	Owner    util.Uint160
	Currency util.Uint160
}

// CreateEvent represents "Create" event emitted by the contract.
type CreateEvent struct {
	Owner   util.Uint160
	Account string
}

// DepositEvent represents "Deposit" event emitted by the contract.
type DepositEvent struct {
	From    util.Uint160
	Account string
	Amount  *big.Int
}

// WithdrawEvent represents "Withdraw" event emitted by the contract.
type WithdrawEvent struct {
	Owner   util.Uint160
	Account string
	Amount  *big.Int
}

// AccountTransferEvent represents "AccountTransfer" event emitted by the contract.
type AccountTransferEvent struct {
	Owner  util.Uint160
	From   string
	To     string
	Amount *big.Int
	Fee    *big.Int
}

// ChangeCurrencyEvent represents "ChangeCurrency" event emitted by the contract.
type ChangeCurrencyEvent struct {
	Owner    util.Uint160
	Currency util.Uint160
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	nep17.Actor

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// Hash returns the contract hash.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// AccountsOf invokes `accountsOf` method of contract.
func (c *ContractReader) AccountsOf(owner util.Uint160) ([]string, error) {
	return unwrap.ArrayOfUTF8Strings(c.invoker.Call(c.hash, "accountsOf", owner))
}

// BalanceOf invokes `balanceOf` method of contract.
func (c *ContractReader) BalanceOf(name string) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "balanceOf", name))
}

// AccountInfo invokes `accountInfo` method of contract.
func (c *ContractReader) AccountInfo(name string) (*BankAccount, error) {
	return itemToBankAccount(unwrap.Item(c.invoker.Call(c.hash, "accountInfo", name)))
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// Currency invokes `currency` method of contract.
func (c *ContractReader) Currency() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "currency"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// CreateAccount creates a transaction invoking `createAccount` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CreateAccount(owner util.Uint160, name string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "createAccount", owner, name)
}

// CreateAccountTransaction creates a transaction invoking `createAccount` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) CreateAccountTransaction(owner util.Uint160, name string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "createAccount", owner, name)
}

// CreateAccountUnsigned creates a transaction invoking `createAccount` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) CreateAccountUnsigned(owner util.Uint160, name string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "createAccount", nil, owner, name)
}

// Deposit creates a transaction invoking `transfer` method of the currency
// contract which pays the amount to the bank contract with the account name
// as transfer data.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Deposit(currency util.Uint160, from util.Uint160, amount *big.Int, name string) (util.Uint256, uint32, error) {
	return nep17.New(c.actor, currency).Transfer(from, c.hash, amount, name)
}

// DepositTransaction is the same as Deposit, but the signed transaction is
// returned to the caller instead of being sent to the network.
func (c *Contract) DepositTransaction(currency util.Uint160, from util.Uint160, amount *big.Int, name string) (*transaction.Transaction, error) {
	return nep17.New(c.actor, currency).TransferTransaction(from, c.hash, amount, name)
}

// DepositUnsigned is the same as Deposit, but the transaction is neither
// signed nor sent to the network.
func (c *Contract) DepositUnsigned(currency util.Uint160, from util.Uint160, amount *big.Int, name string) (*transaction.Transaction, error) {
	return nep17.New(c.actor, currency).TransferUnsigned(from, c.hash, amount, name)
}

// Withdraw creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Withdraw(name string, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "withdraw", name, amount)
}

// WithdrawTransaction creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) WithdrawTransaction(name string, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "withdraw", name, amount)
}

// WithdrawUnsigned creates a transaction invoking `withdraw` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) WithdrawUnsigned(name string, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "withdraw", nil, name, amount)
}

// Transfer creates a transaction invoking `transfer` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Transfer(from string, to string, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "transfer", from, to, amount)
}

// TransferTransaction creates a transaction invoking `transfer` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) TransferTransaction(from string, to string, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "transfer", from, to, amount)
}

// TransferUnsigned creates a transaction invoking `transfer` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) TransferUnsigned(from string, to string, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "transfer", nil, from, to, amount)
}

// ChangeCurrency creates a transaction invoking `changeCurrency` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ChangeCurrency(currency util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "changeCurrency", currency)
}

// ChangeCurrencyTransaction creates a transaction invoking `changeCurrency` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ChangeCurrencyTransaction(currency util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "changeCurrency", currency)
}

// ChangeCurrencyUnsigned creates a transaction invoking `changeCurrency` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ChangeCurrencyUnsigned(currency util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "changeCurrency", nil, currency)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// itemToBankAccount converts stack item into *BankAccount.
func itemToBankAccount(item stackitem.Item, err error) (*BankAccount, error) {
	if err != nil {
		return nil, err
	}
	var res = new(BankAccount)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of BankAccount from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *BankAccount) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error

	res.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	res.Balance, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Balance: %w", err)
	}

	return nil
}

// CreateEventsFromApplicationLog retrieves a set of all emitted events
// with "Create" name from the provided [result.ApplicationLog].
func CreateEventsFromApplicationLog(log *result.ApplicationLog) ([]*CreateEvent, error) {
	var res []*CreateEvent
	err := eventsFromApplicationLog(log, "Create", func(item *stackitem.Array) error {
		event := new(CreateEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to CreateEvent or
// returns an error if it's not possible to do to so.
func (e *CreateEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventItems(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Account, err = itemToString(arr[1])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	return nil
}

// DepositEventsFromApplicationLog retrieves a set of all emitted events
// with "Deposit" name from the provided [result.ApplicationLog].
func DepositEventsFromApplicationLog(log *result.ApplicationLog) ([]*DepositEvent, error) {
	var res []*DepositEvent
	err := eventsFromApplicationLog(log, "Deposit", func(item *stackitem.Array) error {
		event := new(DepositEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to DepositEvent or
// returns an error if it's not possible to do to so.
func (e *DepositEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventItems(item, 3)
	if err != nil {
		return err
	}

	e.From, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field From: %w", err)
	}

	e.Account, err = itemToString(arr[1])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	e.Amount, err = arr[2].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

// WithdrawEventsFromApplicationLog retrieves a set of all emitted events
// with "Withdraw" name from the provided [result.ApplicationLog].
func WithdrawEventsFromApplicationLog(log *result.ApplicationLog) ([]*WithdrawEvent, error) {
	var res []*WithdrawEvent
	err := eventsFromApplicationLog(log, "Withdraw", func(item *stackitem.Array) error {
		event := new(WithdrawEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to WithdrawEvent or
// returns an error if it's not possible to do to so.
func (e *WithdrawEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventItems(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Account, err = itemToString(arr[1])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	e.Amount, err = arr[2].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

// AccountTransferEventsFromApplicationLog retrieves a set of all emitted events
// with "AccountTransfer" name from the provided [result.ApplicationLog].
func AccountTransferEventsFromApplicationLog(log *result.ApplicationLog) ([]*AccountTransferEvent, error) {
	var res []*AccountTransferEvent
	err := eventsFromApplicationLog(log, "AccountTransfer", func(item *stackitem.Array) error {
		event := new(AccountTransferEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to AccountTransferEvent or
// returns an error if it's not possible to do to so.
func (e *AccountTransferEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventItems(item, 5)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.From, err = itemToString(arr[1])
	if err != nil {
		return fmt.Errorf("field From: %w", err)
	}

	e.To, err = itemToString(arr[2])
	if err != nil {
		return fmt.Errorf("field To: %w", err)
	}

	e.Amount, err = arr[3].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	e.Fee, err = arr[4].TryInteger()
	if err != nil {
		return fmt.Errorf("field Fee: %w", err)
	}

	return nil
}

// ChangeCurrencyEventsFromApplicationLog retrieves a set of all emitted events
// with "ChangeCurrency" name from the provided [result.ApplicationLog].
func ChangeCurrencyEventsFromApplicationLog(log *result.ApplicationLog) ([]*ChangeCurrencyEvent, error) {
	var res []*ChangeCurrencyEvent
	err := eventsFromApplicationLog(log, "ChangeCurrency", func(item *stackitem.Array) error {
		event := new(ChangeCurrencyEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to ChangeCurrencyEvent or
// returns an error if it's not possible to do to so.
func (e *ChangeCurrencyEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventItems(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Currency, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field Currency: %w", err)
	}

	return nil
}

// InitEventsFromApplicationLog retrieves a set of all emitted events
// with "Init" name from the provided [result.ApplicationLog].
func InitEventsFromApplicationLog(log *result.ApplicationLog) ([]*InitEvent, error) {
	var res []*InitEvent
	err := eventsFromApplicationLog(log, "Init", func(item *stackitem.Array) error {
		event := new(InitEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to InitEvent or
// returns an error if it's not possible to do to so.
func (e *InitEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventItems(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Currency, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field Currency: %w", err)
	}

	return nil
}

func eventsFromApplicationLog(log *result.ApplicationLog, name string, parse func(*stackitem.Array) error) error {
	if log == nil {
		return errors.New("nil application log")
	}

	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != name {
				continue
			}
			err := parse(e.Item)
			if err != nil {
				return fmt.Errorf("failed to deserialize %sEvent from stackitem (execution #%d, event #%d): %w", name, i, j, err)
			}
		}
	}

	return nil
}

func eventItems(item *stackitem.Array, n int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}

func itemToString(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("not a UTF-8 string")
	}
	return string(b), nil
}
