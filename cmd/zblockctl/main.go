// Command zblockctl is a small operator tool for exercising the adapter
// outside of a filesystem: it runs the compress/decompress round trip
// against local files or synthetic data and reports the counters a real
// integration would otherwise surface through kstats.
package main

import "github.com/adamdmoss/zstdblock/cmd/zblockctl/cmd"

func main() {
	cmd.Execute()
}
