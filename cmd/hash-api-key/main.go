package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Prints a bcrypt hash for server.ingest_api_key_hash. Without -key a random
// key is generated and printed once.
func main() {
	key := flag.String("key", "", "API key to hash (default: generate one)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if *key == "" {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("Failed to generate key: %v", err)
		}
		*key = "lrk_" + hex.EncodeToString(buf)
		log.Println("Generated a new API key; store it now, it is not recoverable from the hash")
		fmt.Printf("API key: %s\n", *key)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*key), *cost)
	if err != nil {
		log.Fatalf("Failed to hash key: %v", err)
	}

	fmt.Printf("SERVER_INGEST_API_KEY_HASH='%s'\n", hashed)
}
