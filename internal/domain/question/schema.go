package question

// Kind is the value kind a setting must hold.
type Kind string

const (
	KindInt    Kind = "int"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
)

// Field describes one setting key. Default is nil when the key has none.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any
}

type Schema []Field

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

const megabyte = 1024 * 1024

// schemas is initialized once and never mutated; SchemaFor hands out copies.
var schemas = map[Type]Schema{
	TypeText: {
		{Name: "min_length", Kind: KindInt},
		{Name: "max_length", Kind: KindInt},
	},
	TypeSingleChoice: {
		{Name: "options", Kind: KindList, Required: true},
	},
	TypeMultipleChoice: {
		{Name: "options", Kind: KindList},
		{Name: "flexable", Kind: KindBool},
		{Name: "min_selections", Kind: KindInt, Default: 1},
		{Name: "max_selections", Kind: KindInt},
	},
	TypeRating: {
		{Name: "min_value", Kind: KindNumber, Default: 1.0},
		{Name: "max_value", Kind: KindNumber, Default: 5.0},
		{Name: "step", Kind: KindNumber, Default: 1.0},
	},
	TypeFile: {
		{Name: "allowed_extensions", Kind: KindList, Default: []string{"pdf", "doc", "docx"}},
		{Name: "max_file_size", Kind: KindNumber, Default: 5.0},
	},
}

// SchemaFor returns the settings schema of t. Unknown types yield an empty schema.
func SchemaFor(t Type) Schema {
	src := schemas[t]
	out := make(Schema, len(src))
	for i, f := range src {
		if list, ok := f.Default.([]string); ok {
			f.Default = append([]string(nil), list...)
		}
		out[i] = f
	}
	return out
}
