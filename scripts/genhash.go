// One-off: go run scripts/genhash.go [password] [cost]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattyz777/matt-conduit/internal/auth"
)

func main() {
	password := "admin"
	if len(os.Args) > 1 {
		password = os.Args[1]
	}
	cost := 10
	if len(os.Args) > 2 {
		if c, err := strconv.Atoi(os.Args[2]); err == nil {
			cost = c
		}
	}
	h, err := auth.NewBcryptHasher(cost).Hash(password)
	if err != nil {
		panic(err)
	}
	fmt.Print(h)
}
