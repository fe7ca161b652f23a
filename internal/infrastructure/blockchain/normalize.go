package blockchain

import (
	"fmt"
	"strconv"
	"time"

	"defi-risk-engine/internal/domain/entity"
)

// RawTransaction is a ledger transaction as returned by indexing APIs:
// every numeric field is an integer in base units encoded as a string.
type RawTransaction struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	TxReceiptStatus string `json:"txreceipt_status"`
}

// Normalize converts raw base-unit fields into a TransactionRecord
func (r RawTransaction) Normalize() (entity.TransactionRecord, error) {
	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return entity.TransactionRecord{}, fmt.Errorf("tx %s: invalid timestamp %q: %w", r.Hash, r.TimeStamp, err)
	}

	value, err := entity.ScaleWei(r.Value, entity.NativeDecimals)
	if err != nil {
		return entity.TransactionRecord{}, fmt.Errorf("tx %s: invalid value %q: %w", r.Hash, r.Value, err)
	}

	var gasUsed uint64
	if r.GasUsed != "" {
		gasUsed, err = strconv.ParseUint(r.GasUsed, 10, 64)
		if err != nil {
			return entity.TransactionRecord{}, fmt.Errorf("tx %s: invalid gas used %q: %w", r.Hash, r.GasUsed, err)
		}
	}

	gasPrice, err := entity.ScaleWei(r.GasPrice, entity.GweiDecimals)
	if err != nil {
		return entity.TransactionRecord{}, fmt.Errorf("tx %s: invalid gas price %q: %w", r.Hash, r.GasPrice, err)
	}

	status := entity.TxStatusFailed
	if r.TxReceiptStatus == "1" {
		status = entity.TxStatusSuccess
	}

	return entity.TransactionRecord{
		Hash:      r.Hash,
		Timestamp: time.Unix(ts, 0).UTC(),
		From:      r.From,
		To:        r.To,
		Value:     value,
		GasUsed:   gasUsed,
		GasPrice:  gasPrice,
		Status:    status,
	}, nil
}

// NormalizeAll converts a batch, failing on the first malformed record
func NormalizeAll(raws []RawTransaction) ([]entity.TransactionRecord, error) {
	records := make([]entity.TransactionRecord, 0, len(raws))
	for _, raw := range raws {
		record, err := raw.Normalize()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
