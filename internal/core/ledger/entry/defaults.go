package entry

// Defaults returns the values a freshly created entry of kind k receives for
// fields its creation record omitted.
func Defaults(k Kind) Fields {
	f := Fields{FieldFlags: uint32(0)}
	switch k {
	case KindAccountRoot:
		f[FieldOwnerCount] = uint32(0)
	case KindOffer:
		f[FieldBookNode] = Uint64Hex(0)
		f[FieldOwnerNode] = Uint64Hex(0)
	case KindTrustLine:
		f[FieldLowNode] = Uint64Hex(0)
		f[FieldHighNode] = Uint64Hex(0)
	case KindDirectoryNode:
		f[FieldIndexes] = []string{}
	}
	return f
}

// ApplyDefaults fills every absent default field. Present fields are left
// untouched.
func (e *Entry) ApplyDefaults() {
	for name, v := range Defaults(e.Kind()) {
		if _, ok := e.Fields[name]; !ok {
			e.Fields[name] = v
		}
	}
}
