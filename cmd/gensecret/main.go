package main

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"os"
)

// 20 random bytes, the RFC 6238 recommended secret length for SHA-1.
const SecretKeyBytesLen = 20

func main() {
	b := make([]byte, SecretKeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b))
}
