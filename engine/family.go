package engine

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
)

// Family groups networks sharing an account/address/token-reference model.
// The set is closed: anything the registry does not know is FamilyUnsupported,
// never silently defaulted to EVM.
type Family string

const (
	FamilyEVM         Family = "evm"
	FamilyTron        Family = "tron"
	FamilyTon         Family = "ton"
	FamilyUnsupported Family = "unsupported"
)

// tronAddressLen is the decoded length of a base58check TRON address:
// one prefix byte (0x41), a 20-byte account, and a 4-byte checksum.
const tronAddressLen = 25

// tonAddressLen is the decoded length of a friendly TON address:
// tag + workchain + 32-byte hash + 2-byte CRC.
const tonAddressLen = 36

// ValidateTokenReference checks that a token reference has the syntax its
// family requires. An empty reference is valid (native coins carry none).
// This is a cheap local gate that runs before any network call.
func ValidateTokenReference(ref string, family Family) error {
	if ref == "" {
		return nil
	}
	switch family {
	case FamilyEVM:
		if !common.IsHexAddress(ref) {
			return fmt.Errorf("%q is not a 20-byte hex address", ref)
		}
	case FamilyTron:
		if !strings.HasPrefix(ref, "T") {
			return fmt.Errorf("%q does not start with 'T'", ref)
		}
		decoded := base58.Decode(ref)
		if len(decoded) != tronAddressLen || decoded[0] != 0x41 {
			return fmt.Errorf("%q is not a valid base58check contract reference", ref)
		}
	case FamilyTon:
		if !strings.HasPrefix(ref, "EQ") {
			return fmt.Errorf("%q does not start with 'EQ'", ref)
		}
		decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(ref)
		if err != nil {
			return fmt.Errorf("%q is not base64url: %w", ref, err)
		}
		if len(decoded) != tonAddressLen {
			return fmt.Errorf("%q decodes to %d bytes, want %d", ref, len(decoded), tonAddressLen)
		}
	default:
		return fmt.Errorf("family %q has no token reference syntax", family)
	}
	return nil
}

// DetectReferenceFamily guesses which family a raw token reference belongs
// to based on its syntax, or FamilyUnsupported when it does not look like a
// reference at all (plain symbols fall through here).
func DetectReferenceFamily(ref string) Family {
	switch {
	case strings.HasPrefix(ref, "0x") && common.IsHexAddress(ref):
		return FamilyEVM
	case strings.HasPrefix(ref, "T") && len(ref) == 34:
		if decoded := base58.Decode(ref); len(decoded) == tronAddressLen && decoded[0] == 0x41 {
			return FamilyTron
		}
	case strings.HasPrefix(ref, "EQ") && len(ref) == 48:
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(ref); err == nil && len(decoded) == tonAddressLen {
			return FamilyTon
		}
	}
	return FamilyUnsupported
}

// WalletFor returns the wallet address a user supplied for the given family,
// or empty when none is connected.
func WalletFor(family Family, evm, tron, ton string) string {
	switch family {
	case FamilyEVM:
		return evm
	case FamilyTron:
		return tron
	case FamilyTon:
		return ton
	}
	return ""
}
