package voucher

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode produces a voucher code of the form WIFI-1234-AB7X. Codes are
// not cryptographically meaningful; the keyspace just makes accidental
// collisions astronomically unlikely, and the unique index on voucher_code
// catches the rest.
func GenerateCode() (string, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}

	suffix := make([]byte, 4)
	for i := range suffix {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = codeAlphabet[idx.Int64()]
	}

	return fmt.Sprintf("WIFI-%d-%s", 1000+num.Int64(), string(suffix)), nil
}
