package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the receipt outcome of a transaction
type TxStatus string

const (
	TxStatusSuccess TxStatus = "Success"
	TxStatusFailed  TxStatus = "Failed"
)

// Fixed-point scales of the raw ledger fields
const (
	NativeDecimals = 18 // wei -> ETH
	GweiDecimals   = 9  // wei -> gwei
)

// TransactionRecord is a wallet transaction normalized from a history provider
type TransactionRecord struct {
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	From      string          `json:"from"`
	To        string          `json:"to,omitempty"` // empty for contract creation
	Value     decimal.Decimal `json:"value"`        // native units
	GasUsed   uint64          `json:"gas_used"`
	GasPrice  decimal.Decimal `json:"gas_price_gwei"`
	Status    TxStatus        `json:"status"`
}

// IsContractCreation reports whether the transaction had no recipient
func (t TransactionRecord) IsContractCreation() bool {
	return t.To == ""
}

// Succeeded reports whether the receipt status is Success
func (t TransactionRecord) Succeeded() bool {
	return t.Status == TxStatusSuccess
}

// GasFee returns gas_used * gas_price expressed in native units
func (t TransactionRecord) GasFee() decimal.Decimal {
	return decimal.NewFromUint64(t.GasUsed).
		Mul(t.GasPrice).
		Shift(GweiDecimals - NativeDecimals)
}

// ScaleWei converts an integer base-unit amount into a fixed-point value with the given decimals
func ScaleWei(raw string, decimals int32) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-decimals), nil
}
