package engine

import (
	"strings"
)

// ProviderAsset is the identifier an external bridging/exchange provider
// expects for a token: a ticker plus the provider's own network code.
type ProviderAsset struct {
	Ticker  string // e.g., "usdttrc20"
	Network string // e.g., "trx"
}

// AssetResolver translates internal (networkID, symbol) pairs into
// provider-specific asset identifiers. Unresolvable pairs are a normal
// outcome (not every asset is listed on every provider) and come back as
// ok=false, never as an error.
type AssetResolver struct {
	// provider -> "networkID/SYMBOL" -> asset
	table map[string]map[string]ProviderAsset
}

func assetKey(networkID, symbol string) string {
	return strings.ToLower(networkID) + "/" + strings.ToUpper(symbol)
}

// NewAssetResolver builds a resolver from a per-provider mapping table.
func NewAssetResolver(table map[string]map[string]ProviderAsset) *AssetResolver {
	normalized := make(map[string]map[string]ProviderAsset, len(table))
	for provider, assets := range table {
		m := make(map[string]ProviderAsset, len(assets))
		for key, asset := range assets {
			parts := strings.SplitN(key, "/", 2)
			if len(parts) != 2 {
				continue
			}
			m[assetKey(parts[0], parts[1])] = asset
		}
		normalized[strings.ToLower(provider)] = m
	}
	return &AssetResolver{table: normalized}
}

// Resolve returns the provider's identifier for an internal asset, or
// ok=false when the provider does not list it.
func (r *AssetResolver) Resolve(provider, networkID, symbol string) (ProviderAsset, bool) {
	assets, ok := r.table[strings.ToLower(provider)]
	if !ok {
		return ProviderAsset{}, false
	}
	asset, ok := assets[assetKey(networkID, symbol)]
	return asset, ok
}

// DefaultResolverTable lists the assets the built-in providers understand.
// The bridging venue uses ticker+network codes; the same-family aggregator
// is addressed by contract reference and needs no entry here.
func DefaultResolverTable() map[string]map[string]ProviderAsset {
	return map[string]map[string]ProviderAsset{
		"bridgex": {
			"ethereum/ETH":  {Ticker: "eth", Network: "eth"},
			"ethereum/USDT": {Ticker: "usdterc20", Network: "eth"},
			"ethereum/USDC": {Ticker: "usdc", Network: "eth"},
			"polygon/POL":   {Ticker: "pol", Network: "matic"},
			"polygon/USDT":  {Ticker: "usdtmatic", Network: "matic"},
			"bsc/BNB":       {Ticker: "bnb", Network: "bsc"},
			"bsc/USDT":      {Ticker: "usdtbsc", Network: "bsc"},
			"tron/TRX":      {Ticker: "trx", Network: "trx"},
			"tron/USDT":     {Ticker: "usdttrc20", Network: "trx"},
			"ton/TON":       {Ticker: "ton", Network: "ton"},
		},
	}
}
