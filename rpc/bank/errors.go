package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/tokenbank/bank-contract/contracts/bank/bankconst"
)

// Errors returned by the Bank contract. ParseError and CheckResult wrap
// contract failures with them, so they can be checked with errors.Is.
var (
	ErrAlreadyExists       = errors.New(bankconst.ErrAlreadyExists)
	ErrNotFound            = errors.New(bankconst.ErrNotFound)
	ErrUnauthorized        = errors.New(bankconst.ErrUnauthorized)
	ErrInsufficientBalance = errors.New(bankconst.ErrInsufficientBalance)
	ErrInvalidAddress      = errors.New(bankconst.ErrInvalidAddress)
	ErrInvalidAmount       = errors.New(bankconst.ErrInvalidAmount)
	ErrInvalidName         = errors.New(bankconst.ErrInvalidName)
	ErrArithmeticOverflow  = errors.New(bankconst.ErrArithmeticOverflow)
	ErrArithmeticUnderflow = errors.New(bankconst.ErrArithmeticUnderflow)
	ErrTransferFailed      = errors.New(bankconst.ErrTransferFailed)
)

var faults = []struct {
	msg string
	err error
}{
	{bankconst.ErrAlreadyExists, ErrAlreadyExists},
	{bankconst.ErrNotFound, ErrNotFound},
	// Owner without accounts is reported as missing.
	{bankconst.ErrOwnerNotFound, ErrNotFound},
	{bankconst.ErrUnauthorized, ErrUnauthorized},
	{bankconst.ErrInsufficientBalance, ErrInsufficientBalance},
	{bankconst.ErrInvalidAddress, ErrInvalidAddress},
	{bankconst.ErrInvalidAmount, ErrInvalidAmount},
	{bankconst.ErrInvalidName, ErrInvalidName},
	{bankconst.ErrArithmeticOverflow, ErrArithmeticOverflow},
	{bankconst.ErrArithmeticUnderflow, ErrArithmeticUnderflow},
	{bankconst.ErrTransferFailed, ErrTransferFailed},
}

// ParseError wraps err with the matching contract error if err carries
// a Bank contract exception. Other errors are returned as is.
func ParseError(err error) error {
	if err == nil {
		return nil
	}

	if sentinel := matchFault(err.Error()); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}

	return err
}

// CheckResult checks that the transaction has been executed successfully.
// FAULT results are returned as errors wrapping the matching contract error.
func CheckResult(aer *state.AppExecResult, err error) error {
	if err != nil {
		return err
	}

	if aer.VMState != vmstate.Halt {
		fault := fmt.Errorf("transaction %s failed: %s", aer.Container.StringLE(), aer.FaultException)
		return ParseError(fault)
	}

	return nil
}

func matchFault(msg string) error {
	for i := range faults {
		if strings.Contains(msg, faults[i].msg) {
			return faults[i].err
		}
	}

	return nil
}
