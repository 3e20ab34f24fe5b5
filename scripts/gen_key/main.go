package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"csv-exporter/internal/security"
)

func main() {
	// Generate a 24-byte random API key (48 hex characters)
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	key := hex.EncodeToString(bytes)

	hash, err := security.HashAPIKey(key)
	if err != nil {
		fmt.Printf("Error hashing key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== New API Key Generated ===")
	fmt.Printf("Key (give to the client, send as X-API-Key):\n%s\n\n", key)
	fmt.Printf("Hash (append to API_KEY_HASHES, comma-separated):\n%s\n", hash)
}
