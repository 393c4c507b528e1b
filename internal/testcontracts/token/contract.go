package token

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	supplyKey     = "supply"
	balancePrefix = 'b'
)

func Symbol() string {
	return "TEST"
}

func Decimals() int {
	return 0
}

func TotalSupply() int {
	return getInt(storage.GetReadOnlyContext(), supplyKey)
}

func BalanceOf(holder interop.Hash160) int {
	return getInt(storage.GetReadOnlyContext(), append([]byte{balancePrefix}, holder...))
}

// Mint creates tokens out of thin air, anyone can call it.
func Mint(to interop.Hash160, amount int) {
	if len(to) != interop.Hash160Len || amount < 0 {
		panic("invalid mint arguments")
	}

	ctx := storage.GetContext()
	key := append([]byte{balancePrefix}, to...)

	storage.Put(ctx, key, getInt(ctx, key)+amount)
	storage.Put(ctx, supplyKey, getInt(ctx, supplyKey)+amount)
}

func Transfer(from, to interop.Hash160, amount int, data any) bool {
	if len(from) != interop.Hash160Len || len(to) != interop.Hash160Len {
		panic("invalid address")
	}

	if amount < 0 {
		panic("negative amount")
	}

	if !runtime.CheckWitness(from) && !runtime.GetCallingScriptHash().Equals(from) {
		return false
	}

	ctx := storage.GetContext()
	fromKey := append([]byte{balancePrefix}, from...)

	fromBalance := getInt(ctx, fromKey)
	if fromBalance < amount {
		return false
	}

	if !from.Equals(to) {
		toKey := append([]byte{balancePrefix}, to...)

		storage.Put(ctx, fromKey, fromBalance-amount)
		storage.Put(ctx, toKey, getInt(ctx, toKey)+amount)
	}

	runtime.Notify("Transfer", from, to, amount)

	if management.GetContract(to) != nil {
		contract.Call(to, "onNEP17Payment", contract.All, from, amount, data)
	}

	return true
}

func getInt(ctx storage.Context, key any) int {
	raw := storage.Get(ctx, key)
	if raw == nil {
		return 0
	}

	return raw.(int)
}
