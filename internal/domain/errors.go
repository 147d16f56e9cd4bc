package domain

import "errors"

var (
	// Ledger errors
	ErrDuplicateReference = errors.New("external reference already recorded for tenant")
	ErrInsufficientFunds  = errors.New("wallet balance insufficient for debit")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrLedgerChainBroken  = errors.New("ledger entry chain does not replay")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidEntryKind   = errors.New("unknown ledger entry kind")

	// Invoice errors
	ErrInvoiceNotFound = errors.New("invoice not found")

	// Reconciliation errors
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotPendingReview     = errors.New("notification is not pending review")
	ErrInvalidTransition    = errors.New("illegal state transition")

	// Push session errors
	ErrSessionNotFound = errors.New("push payment session not found")
	ErrTenantNotFound  = errors.New("tenant not found")
)
