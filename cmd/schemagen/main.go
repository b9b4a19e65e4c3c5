// Package main generates the JSON Schema for the gateway
// configuration file.
//
// Usage:
//
//	go run ./cmd/schemagen > configs/gateway.schema.json
package main

import (
	"fmt"
	"os"

	"github.com/your-org/gateway/internal/schema"
)

func main() {
	gen := schema.NewGenerator()
	data, err := gen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(data))
}
