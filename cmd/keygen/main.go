// Command keygen hashes a UI access key for the auth.access_key_hash
// config field.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gingerskull/joycore-link/internal/auth"
)

func main() {
	var key string
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "Access key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to read key:", err)
			os.Exit(1)
		}
		key = strings.TrimSpace(line)
	}

	if key == "" {
		fmt.Fprintln(os.Stderr, "access key must not be empty")
		os.Exit(1)
	}

	hash, err := auth.NewKeyHasher().HashKey(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashing failed:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
