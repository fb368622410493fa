package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a password with the configured bcrypt cost. A cost
// outside bcrypt's supported range (a typo'd BCRYPT_COST) falls back to the
// library default rather than producing trivially weak hashes.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash against a login attempt in constant
// time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
