// Package velocity holds the derived, cacheable velocity snapshot
// consumed by the feature extractor. It is never itself authoritative;
// it is always derived on demand from persisted transaction records.
package velocity

import "github.com/shopspring/decimal"

// Snapshot is the per-(customer, IP) rolling-window activity summary.
// Missing sub-features default to their zero value, per the feature
// extractor's contract.
type Snapshot struct {
	CustomerTxCount1h  int64
	CustomerTxCount24h int64
	CustomerTxCount7d  int64

	CustomerAmountSum1h  decimal.Decimal
	CustomerAmountSum24h decimal.Decimal
	CustomerAmountSum7d  decimal.Decimal

	IPTxCount1h  int64
	IPTxCount24h int64

	DeviceTxCount1h  int64
	DeviceTxCount24h int64
}

// Empty returns a zero-valued snapshot, used when no history exists for
// a customer/IP pair.
func Empty() Snapshot {
	zero := decimal.Zero
	return Snapshot{
		CustomerAmountSum1h:  zero,
		CustomerAmountSum24h: zero,
		CustomerAmountSum7d:  zero,
	}
}
