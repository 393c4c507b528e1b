/*
Package bankconst contains constants shared by the Bank contract and its
off-chain clients.
*/
package bankconst

// Messages of exceptions thrown by the Bank contract. Every failed call FAULTs
// the transaction with one of them, so they are stable and can be matched by
// the clients.
const (
	ErrAlreadyExists       = "account already exists"
	ErrNotFound            = "account does not exist"
	ErrOwnerNotFound       = "owner has no accounts"
	ErrUnauthorized        = "unauthorized"
	ErrInsufficientBalance = "insufficient balance"
	ErrInvalidAddress      = "invalid address"
	ErrInvalidAmount       = "invalid amount"
	ErrInvalidName         = "invalid account name"
	ErrArithmeticOverflow  = "arithmetic overflow"
	ErrArithmeticUnderflow = "arithmetic underflow"
	ErrTransferFailed      = "failed to transfer funds, aborting"
)

const (
	// MaxAccountNameLen is the maximum length of the account name in bytes.
	// Neo storage keys are limited to 64 bytes, one is taken by the prefix.
	MaxAccountNameLen = 63

	// MaxBalance is the decimal representation of the largest balance an
	// account can hold (2^128-1).
	MaxBalance = "340282366920938463463374607431768211455"

	// FeeDivisor defines the fee taken from transfers between accounts of
	// different owners: amount / FeeDivisor.
	FeeDivisor = 100
)
