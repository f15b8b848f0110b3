// Command dbtrace explores dbt manifest lineage from the terminal or over HTTP.
package main

import (
	"os"

	"github.com/leapstack-labs/dbtrace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
