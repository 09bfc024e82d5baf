package firmware

import (
	"fmt"
	"strconv"
)

// IdentityDigits is the exact length of a device identity string.
const IdentityDigits = 4

// Identity is the numeric identifier stamped into the configuration block.
type Identity uint16

// ParseIdentity parses a device identity of exactly four ASCII digits.
func ParseIdentity(s string) (Identity, error) {
	if len(s) != IdentityDigits {
		return 0, fmt.Errorf("device identity must be exactly %d digits, got %q", IdentityDigits, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("device identity must contain only digits, got %q", s)
		}
	}

	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid device identity %q: %w", s, err)
	}
	return Identity(v), nil
}

func (id Identity) String() string {
	return fmt.Sprintf("%04d", uint16(id))
}
