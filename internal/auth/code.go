package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodeDigits is the width of every issued verification code.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// CodeGenerator draws fixed-width numeric codes from crypto/rand.
type CodeGenerator struct{}

// NewCodeGenerator returns a generator.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate returns a zero-padded code uniform over [000000, 999999].
func (g *CodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return formatCode(n.Int64()), nil
}

func formatCode(n int64) string {
	return fmt.Sprintf("%0*d", CodeDigits, n)
}

// HashCode returns the hex SHA-256 digest of a code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CodeMatches compares a submitted code against a stored digest in constant time.
func CodeMatches(submitted, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(submitted)), []byte(storedHash)) == 1
}
