// Package input provides the built-in input processors. Every input emits
// one string record per line of the files it reads.
package input
