// Package model provides the data structures of a pipeline tree.
// It defines the stages a tree is made of, the description of a stage handed
// to observers, and the options observing a run.
package model
