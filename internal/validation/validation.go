package validation

import (
	"bitfrost-bridge/internal/models"
	"errors"
	"fmt"
	"math/big"
	"regexp"
)

var (
	cosmosAddressRegex = regexp.MustCompile(`^[a-z][a-z0-9]{1,19}1[02-9ac-hj-np-z]{38,90}$`)
	evmAddressRegex    = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	bitcoinRegex       = regexp.MustCompile(`^[13mn2][a-km-zA-HJ-NP-Z1-9]{25,34}$|^(bc|tb)1[a-z0-9]{39,59}$`)
	solanaRegex        = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	tonRegex           = regexp.MustCompile(`^[A-Za-z0-9_-]{48}$|^-?[0-9]+:[a-fA-F0-9]{64}$`)
	genericRegex       = regexp.MustCompile(`^[a-zA-Z0-9:_-]{4,128}$`)

	cosmosTxHashRegex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

// ValidateAddress validates a destination address for the given chain kind
func ValidateAddress(address string, kind models.ChainKind) error {
	if address == "" {
		return errors.New("address cannot be empty")
	}

	// Basic length check
	if len(address) > 128 {
		return errors.New("address length is invalid")
	}

	switch kind {
	case models.KindCosmos:
		if !cosmosAddressRegex.MatchString(address) {
			return errors.New("invalid bech32 address format")
		}
	case models.KindEVM:
		if !evmAddressRegex.MatchString(address) {
			return errors.New("invalid EVM address format")
		}
	case models.KindUTXO:
		if !bitcoinRegex.MatchString(address) {
			return errors.New("invalid UTXO address format")
		}
	case models.KindSolana:
		if !solanaRegex.MatchString(address) {
			return errors.New("invalid Solana address format")
		}
	case models.KindTON:
		if !tonRegex.MatchString(address) {
			return errors.New("invalid TON address format")
		}
	default:
		// Payment rails and unknown kinds use opaque account identifiers
		if !genericRegex.MatchString(address) {
			return errors.New("address contains invalid characters")
		}
	}

	return nil
}

// ParseAmount parses a base-unit amount. Only non-negative decimal integers
// are accepted.
func ParseAmount(amount string) (*big.Int, error) {
	if amount == "" {
		return nil, errors.New("amount cannot be empty")
	}

	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not an integer", amount)
	}

	if value.Sign() < 0 {
		return nil, errors.New("amount cannot be negative")
	}

	return value, nil
}

// ValidateTxHash validates a bridge-chain transaction hash
func ValidateTxHash(txHash string) error {
	if txHash == "" {
		return errors.New("transaction hash cannot be empty")
	}

	if !cosmosTxHashRegex.MatchString(txHash) {
		return errors.New("invalid transaction hash")
	}

	return nil
}
