// Command tokenpair-keygen prints fresh key material for the two token
// codecs as JWK documents, ready for TOKENS_SIGNING_KEY and
// TOKENS_ENCRYPTION_KEY.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrEthical07/tokenpair/internal/keys"
)

func main() {
	var (
		signingSize = flag.Int("signing-bytes", 32, "HS256 secret size in bytes (>= 32)")
		encSize     = flag.Int("encryption-bytes", 32, "AES-GCM key size in bytes (16, 24 or 32)")
	)
	flag.Parse()

	if *signingSize < 32 {
		fmt.Fprintln(os.Stderr, "signing-bytes must be at least 32")
		os.Exit(2)
	}
	alg, ok := map[int]string{16: "A128GCM", 24: "A192GCM", 32: "A256GCM"}[*encSize]
	if !ok {
		fmt.Fprintln(os.Stderr, "encryption-bytes must be 16, 24 or 32")
		os.Exit(2)
	}

	signing, err := keys.GenerateJWK(*signingSize, "HS256")
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate signing key:", err)
		os.Exit(1)
	}
	encryption, err := keys.GenerateJWK(*encSize, alg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate encryption key:", err)
		os.Exit(1)
	}

	fmt.Printf("TOKENS_SIGNING_KEY='%s'\n", signing)
	fmt.Printf("TOKENS_ENCRYPTION_KEY='%s'\n", encryption)
}
