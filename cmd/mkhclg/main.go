// Command mkhclg builds a decoding graph from a YAML recipe and prints how
// each stage changed its size and stochasticity bounds.
//
//	mkhclg build --recipe recipe.yaml [--config hclg.yaml] [--log-level debug]
//	mkhclg config
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
