package engine

import "strings"

// Asset is one token listed on a network. TokenRef is the family-specific
// on-chain reference (contract address, jetton master); native coins have
// none.
type Asset struct {
	Symbol   string
	TokenRef string
	Decimals int
}

// Network is one supported network and its listed assets.
type Network struct {
	ID     string
	Name   string
	Family Family
	Assets []Asset
}

// Registry answers network-family classification and asset lookups. It is
// built once at startup and read-only afterwards.
type Registry struct {
	networks map[string]Network
}

func NewRegistry(networks []Network) *Registry {
	m := make(map[string]Network, len(networks))
	for _, n := range networks {
		m[strings.ToLower(n.ID)] = n
	}
	return &Registry{networks: m}
}

// Classify maps a network identifier to its family. Unknown networks are
// FamilyUnsupported; callers must handle that case explicitly.
func (r *Registry) Classify(networkID string) Family {
	n, ok := r.networks[strings.ToLower(networkID)]
	if !ok {
		return FamilyUnsupported
	}
	return n.Family
}

// Lookup returns the network record for an identifier.
func (r *Registry) Lookup(networkID string) (Network, bool) {
	n, ok := r.networks[strings.ToLower(networkID)]
	return n, ok
}

// Asset finds a listed asset by symbol or by raw token reference.
func (r *Registry) Asset(networkID, symbolOrRef string) (Asset, bool) {
	n, ok := r.networks[strings.ToLower(networkID)]
	if !ok {
		return Asset{}, false
	}
	for _, a := range n.Assets {
		if strings.EqualFold(a.Symbol, symbolOrRef) || (a.TokenRef != "" && a.TokenRef == symbolOrRef) {
			return a, true
		}
	}
	return Asset{}, false
}

// Networks returns all registered networks.
func (r *Registry) Networks() []Network {
	out := make([]Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n)
	}
	return out
}

// DefaultNetworks is the built-in catalogue used when no network config file
// is supplied.
func DefaultNetworks() []Network {
	return []Network{
		{
			ID: "ethereum", Name: "Ethereum", Family: FamilyEVM,
			Assets: []Asset{
				{Symbol: "ETH", Decimals: 18},
				{Symbol: "USDT", TokenRef: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
				{Symbol: "USDC", TokenRef: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
				{Symbol: "WETH", TokenRef: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
			},
		},
		{
			ID: "polygon", Name: "Polygon", Family: FamilyEVM,
			Assets: []Asset{
				{Symbol: "POL", Decimals: 18},
				{Symbol: "USDT", TokenRef: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
				{Symbol: "USDC", TokenRef: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
			},
		},
		{
			ID: "bsc", Name: "BNB Smart Chain", Family: FamilyEVM,
			Assets: []Asset{
				{Symbol: "BNB", Decimals: 18},
				{Symbol: "USDT", TokenRef: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18},
			},
		},
		{
			ID: "tron", Name: "TRON", Family: FamilyTron,
			Assets: []Asset{
				{Symbol: "TRX", Decimals: 6},
				{Symbol: "USDT", TokenRef: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Decimals: 6},
			},
		},
		{
			ID: "ton", Name: "TON", Family: FamilyTon,
			Assets: []Asset{
				{Symbol: "TON", Decimals: 9},
				{Symbol: "USDT", TokenRef: "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs", Decimals: 6},
			},
		},
	}
}
