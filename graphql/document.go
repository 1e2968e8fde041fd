package graphql

// Document is the source text of a GraphQL request document.
//
// It is treated as an opaque string: no parsing or validation is performed on
// its contents before it is sent over the wire.
type Document string

func (d Document) String() string {
	return string(d)
}
