package bank

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/tokenbank/bank-contract/common"
	"github.com/tokenbank/bank-contract/contracts/bank/bankconst"
)

type (
	// Config is a ledger-wide configuration set on deployment.
	Config struct {
		// Ledger administrator, the only one allowed to change currency
		// and update the contract.
		Owner interop.Hash160
		// NEP-17 token accepted for deposits and paid on withdrawals.
		Currency interop.Hash160
	}

	// Account is a named balance record controlled by a single owner.
	Account struct {
		Owner   interop.Hash160
		Balance int
	}
)

const (
	configKey = "config"

	accountPrefix = 'a'
	indexPrefix   = 'i'
	counterPrefix = 'c'

	// Owner index keys end with the zero-padded decimal insertion counter,
	// so storage iteration returns names in the order they were created.
	seqWidth = 10

	// Leading bytes of std.Serialize output for string payloads.
	byteStringType = 0x28
	bufferType     = 0x30
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		currency interop.Hash160
	})

	if !common.IsValidHash160(args.currency) {
		panic(bankconst.ErrInvalidAddress)
	}

	tx := runtime.GetScriptContainer()
	ctx := storage.GetContext()

	common.SetSerialized(ctx, configKey, Config{
		Owner:    tx.Sender,
		Currency: args.currency,
	})

	runtime.Notify("Init", tx.Sender, args.currency)
	runtime.Log("bank contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the ledger owner.
func Update(nefFile, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	common.CheckWitness(getConfig(ctx).Owner, bankconst.ErrUnauthorized)

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("bank contract updated")
}

// CreateAccount registers a new account with the given name and zero balance.
// The owner must witness the invocation. Account names are unique for the
// whole lifetime of the contract.
//
// Produces Create notification.
func CreateAccount(owner interop.Hash160, name string) {
	if !common.IsValidHash160(owner) {
		panic(bankconst.ErrInvalidAddress)
	}

	common.CheckWitness(owner, bankconst.ErrUnauthorized)

	if !isValidName(name) {
		panic(bankconst.ErrInvalidName)
	}

	ctx := storage.GetContext()
	key := accountKey(name)

	if storage.Get(ctx, key) != nil {
		panic(bankconst.ErrAlreadyExists)
	}

	common.SetSerialized(ctx, key, Account{
		Owner:   owner,
		Balance: 0,
	})
	appendToIndex(ctx, owner, name)

	runtime.Notify("Create", owner, name)
}

// OnNEP17Payment is a callback for the NEP-17 currency contract. Tokens are
// credited to the account which name is passed in the data argument. Payments
// from any contract other than the configured currency are rejected.
//
// Produces Deposit notification.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()

	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(getConfig(ctx).Currency) {
		panic(bankconst.ErrUnauthorized)
	}

	checkAmount(amount)

	name := accountName(data)

	acc := mustGetAccount(ctx, name)
	acc.Balance = checkedAdd(acc.Balance, amount)
	common.SetSerialized(ctx, accountKey(name), acc)

	runtime.Notify("Deposit", from, name, amount)
}

// Withdraw pays the amount from the account back to its owner in the
// configured currency. It can be invoked only by the account owner.
//
// Produces Withdraw notification.
func Withdraw(name string, amount int) {
	checkAmount(amount)

	ctx := storage.GetContext()

	acc := mustGetAccount(ctx, name)
	common.CheckWitness(acc.Owner, bankconst.ErrUnauthorized)

	if acc.Balance < amount {
		panic(bankconst.ErrInsufficientBalance)
	}

	acc.Balance = checkedSub(acc.Balance, amount)
	common.SetSerialized(ctx, accountKey(name), acc)

	currency := getConfig(ctx).Currency

	transferred := contract.Call(currency, "transfer", contract.All,
		runtime.GetExecutingScriptHash(), acc.Owner, amount, nil).(bool)
	if !transferred {
		panic(bankconst.ErrTransferFailed)
	}

	runtime.Notify("Withdraw", acc.Owner, name, amount)
}

// Transfer moves the amount between two accounts. It can be invoked only by the
// owner of the source account. Transfers between accounts of different owners
// are charged with amount/100 fee, which is withheld from the credited amount
// and is not credited anywhere.
//
// Produces AccountTransfer notification.
func Transfer(from, to string, amount int) {
	checkAmount(amount)

	ctx := storage.GetContext()

	src := mustGetAccount(ctx, from)
	common.CheckWitness(src.Owner, bankconst.ErrUnauthorized)

	if src.Balance < amount {
		panic(bankconst.ErrInsufficientBalance)
	}

	dst := mustGetAccount(ctx, to)

	if from == to {
		runtime.Notify("AccountTransfer", src.Owner, from, to, amount, 0)
		return
	}

	fee := transferFee(src.Owner, dst.Owner, amount)

	src.Balance = checkedSub(src.Balance, amount)
	dst.Balance = checkedAdd(dst.Balance, checkedSub(amount, fee))

	common.SetSerialized(ctx, accountKey(from), src)
	common.SetSerialized(ctx, accountKey(to), dst)

	runtime.Notify("AccountTransfer", src.Owner, from, to, amount, fee)
}

// ChangeCurrency replaces the NEP-17 token accepted by the ledger. It can be
// invoked only by the ledger owner. Balances are not converted.
//
// Produces ChangeCurrency notification.
func ChangeCurrency(currency interop.Hash160) {
	ctx := storage.GetContext()

	cfg := getConfig(ctx)
	common.CheckWitness(cfg.Owner, bankconst.ErrUnauthorized)

	if !common.IsValidHash160(currency) {
		panic(bankconst.ErrInvalidAddress)
	}

	cfg.Currency = currency
	common.SetSerialized(ctx, configKey, cfg)

	runtime.Notify("ChangeCurrency", cfg.Owner, currency)
}

// AccountsOf returns names of all accounts created by the owner in the order
// of their creation.
func AccountsOf(owner interop.Hash160) []string {
	if !common.IsValidHash160(owner) {
		panic(bankconst.ErrInvalidAddress)
	}

	ctx := storage.GetReadOnlyContext()
	res := []string{}

	it := storage.Find(ctx, ownerIndexPrefix(owner), storage.ValuesOnly)
	for iterator.Next(it) {
		res = append(res, iterator.Value(it).(string))
	}

	if len(res) == 0 {
		panic(bankconst.ErrOwnerNotFound)
	}

	return res
}

// BalanceOf returns the balance of the named account.
func BalanceOf(name string) int {
	ctx := storage.GetReadOnlyContext()
	return mustGetAccount(ctx, name).Balance
}

// AccountInfo returns the named account record.
func AccountInfo(name string) Account {
	ctx := storage.GetReadOnlyContext()
	return mustGetAccount(ctx, name)
}

// Owner returns the ledger owner.
func Owner() interop.Hash160 {
	return getConfig(storage.GetReadOnlyContext()).Owner
}

// Currency returns the NEP-17 token accepted by the ledger.
func Currency() interop.Hash160 {
	return getConfig(storage.GetReadOnlyContext()).Currency
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func getConfig(ctx storage.Context) Config {
	return std.Deserialize(storage.Get(ctx, configKey).([]byte)).(Config)
}

func mustGetAccount(ctx storage.Context, name string) Account {
	if !isValidName(name) {
		panic(bankconst.ErrNotFound)
	}

	data := storage.Get(ctx, accountKey(name))
	if data == nil {
		panic(bankconst.ErrNotFound)
	}

	return std.Deserialize(data.([]byte)).(Account)
}

// accountName returns the account name carried by the payment data. Payloads
// other than strings can't name an account.
func accountName(data any) string {
	if data == nil {
		panic(bankconst.ErrNotFound)
	}

	raw := std.Serialize(data)
	if raw[0] != byteStringType && raw[0] != bufferType {
		panic(bankconst.ErrNotFound)
	}

	return data.(string)
}

func appendToIndex(ctx storage.Context, owner interop.Hash160, name string) {
	counterKey := append([]byte{counterPrefix}, owner...)

	n := 0
	raw := storage.Get(ctx, counterKey)
	if raw != nil {
		n = raw.(int)
	}

	storage.Put(ctx, indexKey(owner, n), name)
	storage.Put(ctx, counterKey, n+1)
}

func accountKey(name string) []byte {
	return append([]byte{accountPrefix}, []byte(name)...)
}

func ownerIndexPrefix(owner interop.Hash160) []byte {
	return append([]byte{indexPrefix}, owner...)
}

func indexKey(owner interop.Hash160, n int) []byte {
	seq := std.Itoa(n, 10)
	for len(seq) < seqWidth {
		seq = "0" + seq
	}

	return append(ownerIndexPrefix(owner), []byte(seq)...)
}

func isValidName(name string) bool {
	return len(name) > 0 && len(name) <= bankconst.MaxAccountNameLen
}

func transferFee(from, to interop.Hash160, amount int) int {
	if from.Equals(to) {
		return 0
	}

	return amount / bankconst.FeeDivisor
}

func maxBalance() int {
	return std.Atoi(bankconst.MaxBalance, 10)
}

func checkAmount(amount int) {
	if amount < 0 || amount > maxBalance() {
		panic(bankconst.ErrInvalidAmount)
	}
}

func checkedAdd(a, b int) int {
	sum := a + b
	if sum > maxBalance() {
		panic(bankconst.ErrArithmeticOverflow)
	}

	return sum
}

func checkedSub(a, b int) int {
	if b > a {
		panic(bankconst.ErrArithmeticUnderflow)
	}

	return a - b
}
