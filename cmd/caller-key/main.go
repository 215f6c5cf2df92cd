// Package main generates the Ed25519 key pair that signs and verifies
// escrow caller tokens.
package main

import (
	"os"

	"github.com/louisbranch/commongood/internal/platform/config"
	"github.com/louisbranch/commongood/internal/services/escrow/callertoken"
)

func main() {
	if err := callertoken.WriteKeyPair(os.Stdout, nil); err != nil {
		config.Exitf("generate caller key: %v", err)
	}
}
