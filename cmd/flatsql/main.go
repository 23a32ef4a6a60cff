// Command flatsql is a SQL-like query interface over delimiter-separated
// table files.
package main

import (
	"os"

	"github.com/leengari/flatsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
