// Command ssg merges versions of a compiled JVM library into a superset of
// class files annotated with version metadata.
package main

import (
	"fmt"
	"os"

	"github.com/LDVSOFT/TestCompat/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "ssg:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
