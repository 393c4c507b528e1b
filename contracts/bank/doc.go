/*
Package bank implements Bank contract, a custodial ledger of named accounts
holding balances in a single NEP-17 token.

Every account has a unique name and is controlled by the address that created
it. Tokens get into the ledger with a regular NEP-17 transfer to the contract
address with the account name passed as the data argument. The owner can
withdraw tokens back to its address or move them to any other account. Moving
tokens to an account of another owner costs 1% of the amount; the fee is
withheld from the credited amount and is not accounted anywhere.

The token is set on deployment and can be changed by the ledger owner, that is
the sender of the deploying transaction.

# Contract notifications

Init notification. This notification is produced once on deployment.

	Init:
	  - name: owner
	    type: Hash160
	  - name: currency
	    type: Hash160

Create notification. This notification is produced when a new account is
registered.

	Create:
	  - name: owner
	    type: Hash160
	  - name: account
	    type: String

Deposit notification. This notification is produced when currency tokens are
credited to the account. The from field is the address tokens came from.

	Deposit:
	  - name: from
	    type: Hash160
	  - name: account
	    type: String
	  - name: amount
	    type: Integer

Withdraw notification. This notification is produced when tokens are paid back
to the account owner. It follows the Transfer notification of the currency
contract.

	Withdraw:
	  - name: owner
	    type: Hash160
	  - name: account
	    type: String
	  - name: amount
	    type: Integer

AccountTransfer notification. This notification is produced when tokens are
moved between two accounts.

	AccountTransfer:
	  - name: owner
	    type: Hash160
	  - name: from
	    type: String
	  - name: to
	    type: String
	  - name: amount
	    type: Integer
	  - name: fee
	    type: Integer

ChangeCurrency notification. This notification is produced when the ledger
owner switches the accepted token.

	ChangeCurrency:
	  - name: owner
	    type: Hash160
	  - name: currency
	    type: Hash160
*/
package bank

/*
Contract storage model.

# Summary
Key-value storage format:
 - 'config' -> std.Serialize(Config)
   ledger owner and currency token
 - a<account name> -> std.Serialize(Account)
   balance record of the account
 - i<interop.Hash160><counter> -> account name
   owner index, counter is a 10-digit zero-padded decimal number
 - c<interop.Hash160> -> int
   number of accounts created by the owner

# Owner index
Every account name is appended to the index of its owner once on creation.
Iteration over the index prefix of the owner returns names in the creation
order.
*/
