package security

import "golang.org/x/crypto/bcrypt"

// HashAPIKey produces the bcrypt hash stored in configuration for a raw key.
func HashAPIKey(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether raw matches any of the configured hashes.
// An empty hash list disables API-key auth.
func VerifyAPIKey(hashes []string, raw string) bool {
	for _, hash := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil {
			return true
		}
	}
	return false
}
