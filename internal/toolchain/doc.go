// Package toolchain cross-compiles the released program with the go command.
//
// Every build is static (CGO_ENABLED=0), stripped (-s -w) and stamped with the
// run's metadata through -X linker flags.
package toolchain
