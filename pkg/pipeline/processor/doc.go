// Package processor defines the contract between the engine and the input,
// transform and output processors it drives.
package processor
