package models

// SwapIntent - POST body for route planning
type SwapIntent struct {
	FromNetworkID string     `json:"from_network_id"`          // e.g., "ethereum"
	ToNetworkID   string     `json:"to_network_id"`            // e.g., "tron"
	FromToken     string     `json:"from_token"`               // symbol or internal token id, e.g., "USDC"
	ToToken       string     `json:"to_token"`                 // symbol or internal token id, e.g., "USDT"
	AmountBase    string     `json:"amount_base"`              // integer string in smallest units
	User          *WalletSet `json:"user,omitempty"`           // destination wallets per family
	SingleStep    *bool      `json:"single_step,omitempty"`    // if true, reject plans that need more than one step
	SlippageBps   *uint32    `json:"slippage_bps,omitempty"`   // overrides the default safety margin base
}

// WalletSet holds the user's wallet address per network family.
// Planning never requires a complete set; execution does.
type WalletSet struct {
	EVMAddress  string `json:"evm_address,omitempty"`
	TronAddress string `json:"tron_address,omitempty"`
	TonAddress  string `json:"ton_address,omitempty"`
}

// Endpoint describes one side of a route (network + token)
type Endpoint struct {
	NetworkID string `json:"network_id"`
	Family    string `json:"family"` // "evm" | "tron" | "ton"
	TokenID   string `json:"token_id"`
	Decimals  int    `json:"decimals"`
}

// Quote is a provider's point-in-time exchange offer. Amounts are
// human-readable decimal strings. Quotes are ephemeral and never persisted
// beyond the plan cache window.
type Quote struct {
	EstimatedAmount string `json:"estimated_amount"`
	MinAmount       string `json:"min_amount,omitempty"`
	MaxAmount       string `json:"max_amount,omitempty"`
	RateID          string `json:"rate_id,omitempty"` // provider token honoring the rate for a bounded time
}

// StepLeg is the from/to side of a single route step
type StepLeg struct {
	NetworkID           string `json:"network_id"`
	TokenID             string `json:"token_id"`
	AmountBase          string `json:"amount_base,omitempty"`           // input side
	EstimatedAmountBase string `json:"estimated_amount_base,omitempty"` // output side; feeds the next step's input
	Decimals            int    `json:"decimals"`
}

// RouteStep is one atomic action within a plan
type RouteStep struct {
	StepID         string  `json:"step_id"` // unique within the plan, order-significant
	Kind           string  `json:"kind"`    // "swap" | "bridge" | "transfer" | "wrap" | "unwrap"
	Family         string  `json:"family"`
	Provider       string  `json:"provider"`
	From           StepLeg `json:"from"`
	To             StepLeg `json:"to"`
	RequiresWallet string  `json:"requires_wallet"` // family whose wallet must sign this step
	Quote          *Quote  `json:"quote,omitempty"`
	ExecutionHint  string  `json:"execution_hint,omitempty"` // provider-specific follow-up instructions
}

// Requires lists what the user must have connected/approved before execution
type Requires struct {
	Wallets   []string `json:"wallets"` // families whose wallets the route touches
	Approvals []string `json:"approvals"`
}

// RoutePlan is the planner's output artifact. It is a value object: once
// built it is never mutated, only superseded by a new plan.
type RoutePlan struct {
	RequestID string       `json:"request_id"` // generated per plan, not reused across retries
	From      Endpoint     `json:"from"`
	To        Endpoint     `json:"to"`
	Steps     []*RouteStep `json:"steps"`
	Requires  Requires     `json:"requires"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// PlanResponse - unified planning response envelope
type PlanResponse struct {
	OK         bool           `json:"ok"`
	RequestID  string         `json:"request_id"` // correlation id, fresh per call
	RoutePlan  *RoutePlan     `json:"route_plan,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	RetryAfter int            `json:"retry_after,omitempty"` // seconds, set when throttled
	Debug      map[string]any `json:"debug,omitempty"`
}

// ExecuteRequest - POST body to turn an accepted plan into a live provider order
type ExecuteRequest struct {
	Provider        string    `json:"provider"`
	FromNetworkID   string    `json:"from_network_id"`
	ToNetworkID     string    `json:"to_network_id"`
	FromTokenSymbol string    `json:"from_token_symbol"`
	ToTokenSymbol   string    `json:"to_token_symbol"`
	AmountHuman     string    `json:"amount_human"` // human-readable decimal amount
	User            WalletSet `json:"user"`
}

// ExecutionRecord is created once a plan is committed
type ExecutionRecord struct {
	Provider      string   `json:"provider"`
	TxID          string   `json:"tx_id"`          // provider's external transaction id
	PayinAddress  string   `json:"payin_address"`  // where the user must send funds
	PayoutAddress string   `json:"payout_address"` // where funds will arrive
	From          Endpoint `json:"from"`
	To            Endpoint `json:"to"`
	Status        string   `json:"status"`
	NextAction    string   `json:"next_action,omitempty"` // human-readable instruction for the caller
}

// ExecuteResponse - execution response envelope
type ExecuteResponse struct {
	OK         bool             `json:"ok"`
	RequestID  string           `json:"request_id"`
	Execution  *ExecutionRecord `json:"execution,omitempty"`
	Error      string           `json:"error,omitempty"`
	ErrorCode  string           `json:"error_code,omitempty"`
	RetryAfter int              `json:"retry_after,omitempty"` // seconds, set when throttled
}

// StatusRequest - poll the state of a provider transaction
type StatusRequest struct {
	Provider string `json:"provider"`
	TxID     string `json:"tx_id"`
}

// TxStatus is the normalized view of a provider transaction
type TxStatus struct {
	Provider      string `json:"provider"`
	TxID          string `json:"tx_id"`
	Status        string `json:"status"` // canonical lifecycle, see engine.Status*
	PayinAddress  string `json:"payin_address,omitempty"`
	PayoutAddress string `json:"payout_address,omitempty"`
	FromAmount    string `json:"from_amount,omitempty"`
	ToAmount      string `json:"to_amount,omitempty"`
}

// StatusResponse - status response envelope
type StatusResponse struct {
	OK         bool      `json:"ok"`
	RequestID  string    `json:"request_id"`
	Status     *TxStatus `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, set when throttled
}

// NetworkInfo describes a supported network for the discovery endpoint
type NetworkInfo struct {
	NetworkID string `json:"network_id"`
	Family    string `json:"family"`
	Name      string `json:"name"`
}

// AssetInfo describes a token listed on a network
type AssetInfo struct {
	NetworkID string `json:"network_id"`
	Symbol    string `json:"symbol"`
	TokenRef  string `json:"token_ref,omitempty"` // contract / jetton master, empty for native coins
	Decimals  int    `json:"decimals"`
}
