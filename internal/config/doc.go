// Package config defines the settings of a packaging run and validates them.
//
// Defaults reproduce a bare invocation: the cfddns-go program, built from the
// parent directory into the current one, for the six-target release matrix.
package config
