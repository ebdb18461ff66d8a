// Command hfsinspect is a read-only command-line inspector for HFS+
// and HFSX volumes.
package main

import "github.com/NSGod/hfsinspect/cmd"

func main() {
	cmd.Execute()
}
