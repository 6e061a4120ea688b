package engine_test

import (
	"testing"

	"github.com/zeebo/assert"

	"github.com/omnidex/route-engine/engine"
)

func TestRegistry_Classify(t *testing.T) {
	registry := engine.NewRegistry(engine.DefaultNetworks())

	tests := []struct {
		networkID string
		family    engine.Family
	}{
		{"ethereum", engine.FamilyEVM},
		{"Polygon", engine.FamilyEVM},
		{"bsc", engine.FamilyEVM},
		{"tron", engine.FamilyTron},
		{"TON", engine.FamilyTon},
		{"solana", engine.FamilyUnsupported},
		{"", engine.FamilyUnsupported},
	}

	for _, tc := range tests {
		got := registry.Classify(tc.networkID)
		assert.Equal(t, got, tc.family)
	}
}

func TestValidateTokenReference(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		family engine.Family
		valid  bool
	}{
		{"native coin has no reference", "", engine.FamilyEVM, true},
		{"usdt erc20", "0xdAC17F958D2ee523a2206206994597C13D831ec7", engine.FamilyEVM, true},
		{"short hex", "0x123", engine.FamilyEVM, false},
		{"no 0x prefix", "dAC17F958D2ee523a2206206994597C13D831ec7", engine.FamilyEVM, false},
		{"usdt trc20", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", engine.FamilyTron, true},
		{"missing T prefix", "R7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", engine.FamilyTron, false},
		{"garbage base58", "T0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0", engine.FamilyTron, false},
		{"usdt jetton master", "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs", engine.FamilyTon, true},
		{"missing EQ prefix", "CxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs", engine.FamilyTon, false},
		{"truncated jetton", "EQCxE6mUtQJK", engine.FamilyTon, false},
		{"unsupported family", "whatever", engine.FamilyUnsupported, false},
	}

	for _, tc := range tests {
		err := engine.ValidateTokenReference(tc.ref, tc.family)
		if tc.valid {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
			t.Logf("%s: %v", tc.name, err)
		}
	}
}

func TestDetectReferenceFamily(t *testing.T) {
	tests := []struct {
		ref    string
		family engine.Family
	}{
		{"0xdAC17F958D2ee523a2206206994597C13D831ec7", engine.FamilyEVM},
		{"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", engine.FamilyTron},
		{"EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs", engine.FamilyTon},
		// Plain symbols are not references
		{"USDT", engine.FamilyUnsupported},
		{"ETH", engine.FamilyUnsupported},
		{"TON", engine.FamilyUnsupported},
		{"", engine.FamilyUnsupported},
		{"0x123", engine.FamilyUnsupported},
	}

	for _, tc := range tests {
		got := engine.DetectReferenceFamily(tc.ref)
		assert.Equal(t, got, tc.family)
	}
}

func TestWalletFor(t *testing.T) {
	evm, tron, ton := "0xabc", "Tabc", "EQabc"

	assert.Equal(t, engine.WalletFor(engine.FamilyEVM, evm, tron, ton), evm)
	assert.Equal(t, engine.WalletFor(engine.FamilyTron, evm, tron, ton), tron)
	assert.Equal(t, engine.WalletFor(engine.FamilyTon, evm, tron, ton), ton)
	assert.Equal(t, engine.WalletFor(engine.FamilyUnsupported, evm, tron, ton), "")
}
