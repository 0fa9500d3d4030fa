package main

import (
	"log"

	tool "github.com/pahfm/fleet-backend/internal/tools/migrate"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
