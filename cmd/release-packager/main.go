// Command release-packager cross-compiles a Go program for the release
// matrix and archives every binary.
package main

import "github.com/oshokin/release-packager/cmd/release-packager/cmd"

func main() {
	cmd.Execute()
}
