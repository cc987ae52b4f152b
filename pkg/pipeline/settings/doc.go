// Package settings resolves settings templates into concrete values.
//
// A template is an Expr tree: literals, sequences and mappings, with ArgRef and
// EnvRef placeholders at any depth. Placeholders are bound per run, ArgRef
// against the run's argument bag and EnvRef against the process environment,
// using the required, default and allow-set rules of their ArgDescriptor.
package settings
