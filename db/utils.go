package db

// Namespaces of the content store, all keyed by content id: the encoded
// value, the encoded key and the last distribution outcome.
var (
	NamespaceContent    = []byte("c")
	NamespaceContentKey = []byte("k")
	NamespaceOutcome    = []byte("o")
	EmptyKey            = []byte{}
	Separator           = []byte("|")
)

func PrependNamespace(namespace []byte, key []byte) []byte {
	if namespace != nil {
		out := make([]byte, 0, len(namespace)+len(Separator)+len(key))
		out = append(append(out, namespace...), Separator...)
		return append(out, key...)
	}
	return key
}

// StripNamespace removes the namespace prefix added by PrependNamespace.
func StripNamespace(namespace []byte, key []byte) []byte {
	prefix := len(namespace) + len(Separator)
	if namespace == nil || len(key) < prefix {
		return key
	}
	return key[prefix:]
}

// NamespaceRange returns the iterator bounds covering every key of
// namespace.
func NamespaceRange(namespace []byte) (start []byte, end []byte) {
	start = PrependNamespace(namespace, EmptyKey)
	end = append([]byte{}, start...)
	end[len(end)-1]++
	return start, end
}

func ConvNilToBytes(byteArray []byte) []byte {
	if byteArray == nil {
		return []byte{}
	}
	return byteArray
}
