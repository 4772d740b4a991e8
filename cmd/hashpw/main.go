// Command hashpw generates the bcrypt hash the operations API expects in
// OPS_PASSWORD_HASH.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spec-kit/shopbot/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(os.Args[1], 0)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
}
