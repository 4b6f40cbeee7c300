// Package main — точка входа p-streamrec (dashboard sync agent).
package main

import (
	"log"

	"github.com/raccommode/P-StreamRec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
