// Command flagcheck evaluates and serves feature flag definitions offline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrymomot/featurekit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
