// Package transform provides the built-in transform processors.
package transform
