package engine

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omnidex/route-engine/models"
)

var statusLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	statusLog = zerolog.New(out).With().Timestamp().Str("component", "status").Logger()
}

// Canonical transaction lifecycle. WAITING, CONFIRMING and EXCHANGING are
// non-terminal and must be re-polled; the rest stop polling.
const (
	StatusWaiting    = "WAITING"
	StatusConfirming = "CONFIRMING"
	StatusExchanging = "EXCHANGING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusRefunded   = "REFUNDED"
)

// NormalizeStatus maps a provider-specific status string onto the canonical
// lifecycle and reports whether the state is terminal. Unknown strings map
// to WAITING so a new provider state never falsely terminates polling.
func NormalizeStatus(providerStatus string) (status string, terminal bool) {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "new", "waiting", "waiting_deposit", "pending_deposit":
		return StatusWaiting, false
	case "confirming", "confirmation", "deposit_received":
		return StatusConfirming, false
	case "exchanging", "sending", "processing", "payout_pending":
		return StatusExchanging, false
	case "finished", "completed", "success":
		return StatusCompleted, true
	case "failed", "error", "expired":
		return StatusFailed, true
	case "refunded", "returned":
		return StatusRefunded, true
	default:
		return StatusWaiting, false
	}
}

// IsTerminalStatus reports whether a canonical status ends the lifecycle.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Tracker polls provider transactions and normalizes their status. It holds
// no state of its own: execution records belong to the coordinator.
type Tracker struct {
	bridge BridgeClient
}

func NewTracker(bridge BridgeClient) *Tracker {
	return &Tracker{bridge: bridge}
}

// Poll fetches and normalizes the status of one provider transaction. A
// failed fetch is a STATUS_FETCH_FAILED condition, distinct from the
// transaction itself having failed.
func (t *Tracker) Poll(ctx context.Context, provider, txID string) (*models.TxStatus, *PlanError) {
	if provider == "" || txID == "" {
		return nil, planErr(CodeInvalidRequest, "provider and tx_id are required")
	}
	if !strings.EqualFold(provider, t.bridge.Name()) {
		return nil, planErr(CodeInvalidRequest, "unknown provider %q", provider)
	}

	raw, err := t.bridge.OrderStatus(ctx, txID)
	if err != nil {
		statusLog.Warn().Err(err).Str("tx_id", txID).Msg("Status fetch failed")
		return nil, planErr(CodeStatusFetchFailed, "could not fetch status for %s: %v", txID, err)
	}

	normalized, terminal := NormalizeStatus(raw.Status)
	statusLog.Debug().
		Str("tx_id", txID).
		Str("provider_status", raw.Status).
		Str("status", normalized).
		Bool("terminal", terminal).
		Msg("Polled transaction")

	return &models.TxStatus{
		Provider:      t.bridge.Name(),
		TxID:          raw.TxID,
		Status:        normalized,
		PayinAddress:  raw.PayinAddress,
		PayoutAddress: raw.PayoutAddress,
		FromAmount:    raw.FromAmount,
		ToAmount:      raw.ToAmount,
	}, nil
}
