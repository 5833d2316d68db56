// Command hookctl drives a hookkit host from the command line: dump its
// hook and hdata registries, query objects, run commands, or open an
// interactive prompt.
package main

func main() {
	execute()
}
