package feed

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/log"
)

var ErrNoServerInfo = errors.New("no information from the server yet")

// rippleEpoch is 2000-01-01T00:00:00Z in Unix seconds.
const rippleEpoch = 946684800

// ServerInfo tracks the fee and ledger figures a server publishes on its
// ledger stream and in server_status messages.
type ServerInfo struct {
	mu sync.RWMutex

	updated bool

	FeeBase          uint64
	FeeRef           uint64
	ReserveBase      uint64
	ReserveInc       uint64
	LoadBase         uint64
	LoadFactor       uint64
	LedgerTime       uint64
	LedgerIndex      uint64
	TxnCount         uint64
	LedgerHash       string
	Random           string
	ServerStatus     string
	ValidatedLedgers string

	lastFee uint64
	logger  *log.Logger
}

// NewServerInfo returns an empty snapshot.
func NewServerInfo(logger *log.Logger) *ServerInfo {
	if logger == nil {
		logger = log.Root()
	}
	return &ServerInfo{logger: logger}
}

// Update merges a stream message. Fields absent from msg keep their values.
func (s *ServerInfo) Update(msg map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	optUint(msg, "fee_base", &s.FeeBase)
	optUint(msg, "txn_count", &s.TxnCount)
	optUint(msg, "fee_ref", &s.FeeRef)
	optUint(msg, "reserve_base", &s.ReserveBase)
	optUint(msg, "reserve_inc", &s.ReserveInc)
	optUint(msg, "load_base", &s.LoadBase)
	optUint(msg, "load_factor", &s.LoadFactor)
	optUint(msg, "ledger_time", &s.LedgerTime)
	optUint(msg, "ledger_index", &s.LedgerIndex)
	optString(msg, "ledger_hash", &s.LedgerHash)
	optString(msg, "validated_ledgers", &s.ValidatedLedgers)
	optString(msg, "random", &s.Random)
	optString(msg, "server_status", &s.ServerStatus)

	s.updated = true
}

// numbers are decoded as json.Number or float64; strings are left alone
func optUint(msg map[string]any, key string, dst *uint64) {
	v, ok := msg[key]
	if !ok {
		return
	}
	if _, isString := v.(string); isString {
		return
	}
	if n, err := entry.AsUint64(v); err == nil {
		*dst = n
	}
}

func optString(msg map[string]any, key string, dst *string) {
	if v, ok := msg[key].(string); ok {
		*dst = v
	}
}

// Primed reports whether any update has been received.
func (s *ServerInfo) Primed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// ComputeFee returns the fee in drops for a transaction costing units fee
// units at the current load. Both ratios, fee_base/fee_ref and
// load_factor/load_base, are truncated to whole numbers before they are
// applied, so a load factor between load_base and twice that charges the
// unloaded fee.
func (s *ServerInfo) ComputeFee(units uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.updated {
		return 0, ErrNoServerInfo
	}
	if s.FeeRef == 0 || s.LoadBase == 0 {
		return 0, fmt.Errorf("fee_ref %d and load_base %d must be non-zero", s.FeeRef, s.LoadBase)
	}

	feeUnit := s.FeeBase / s.FeeRef
	feeUnit *= s.LoadFactor / s.LoadBase
	fee := units * feeUnit

	if fee != s.lastFee {
		s.logger.Info("Fee changed", "from", s.lastFee, "to", fee)
	}
	s.lastFee = fee
	return fee, nil
}

// TransactionFee returns the fee for a reference transaction.
func (s *ServerInfo) TransactionFee() (uint64, error) {
	s.mu.RLock()
	base := s.FeeBase
	s.mu.RUnlock()
	return s.ComputeFee(base)
}

// Date returns the close time of the last ledger.
func (s *ServerInfo) Date() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Unix(int64(s.LedgerTime)+rippleEpoch, 0).UTC()
}

func (s *ServerInfo) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("ServerInfo{ledger_index=%d, load_base=%d, load_factor=%d, server_status=%q, validated_ledgers=%q}",
		s.LedgerIndex, s.LoadBase, s.LoadFactor, s.ServerStatus, s.ValidatedLedgers)
}
