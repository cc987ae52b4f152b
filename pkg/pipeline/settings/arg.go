package settings

// ArgDescriptor declares one configurable argument of a processor or a placeholder.
type ArgDescriptor struct {
	Name        string
	Description string
	Default     any
	ValidValues []any
	Required    bool
	HasDefault  bool
	Boolean     bool
}

// ArgBuilder builds an ArgDescriptor.
type ArgBuilder struct {
	desc ArgDescriptor
}

// NewArg starts an ArgBuilder for the argument name.
func NewArg(name string) *ArgBuilder {
	return &ArgBuilder{desc: ArgDescriptor{Name: name}}
}

func (b *ArgBuilder) Required() *ArgBuilder {
	b.desc.Required = true
	return b
}

func (b *ArgBuilder) Default(value any) *ArgBuilder {
	b.desc.Default = value
	b.desc.HasDefault = true
	return b
}

func (b *ArgBuilder) ValidValues(values ...any) *ArgBuilder {
	b.desc.ValidValues = append([]any(nil), values...)
	return b
}

func (b *ArgBuilder) Boolean() *ArgBuilder {
	b.desc.Boolean = true
	return b
}

func (b *ArgBuilder) Description(description string) *ArgBuilder {
	b.desc.Description = description
	return b
}

// Build returns a copy of the descriptor, the builder can be reused.
func (b *ArgBuilder) Build() ArgDescriptor {
	desc := b.desc
	desc.ValidValues = append([]any(nil), b.desc.ValidValues...)

	return desc
}

// Arg is a shortcut for an ArgRef placeholder.
func Arg(desc ArgDescriptor) ArgRef {
	return ArgRef{ArgDescriptor: desc}
}

// Env is a shortcut for an EnvRef placeholder.
func Env(desc ArgDescriptor) EnvRef {
	return EnvRef{ArgDescriptor: desc}
}
