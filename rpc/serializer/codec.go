package serializer

import "fmt"

// NewCodec creates the codec with the given name. The limits are only used by the fixed codec.
func NewCodec(name string, maxStringLength, maxPathLength int) (ICodec, error) {
	switch name {
	case "fixed", "":
		return NewFixedCodec(maxStringLength, maxPathLength), nil
	case "binary":
		return NewBinaryCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec: %s. must be one of fixed, binary, json", name)
	}
}
