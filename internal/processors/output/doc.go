// Package output provides the built-in output processors. Every output reads
// its stream to the end and signals its completion exactly once.
package output
