package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	// 32 random bytes, printed as 64 hex characters.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== New Signing Secret ===")
	fmt.Println(hex.EncodeToString(buf))
	fmt.Println("==========================")
	fmt.Println("Set it as API_SECRET in the exporter's .env, and hand the same")
	fmt.Println("value to clients over a secure channel so they can sign requests.")
}
