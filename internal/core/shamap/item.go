package shamap

// Item is a leaf payload: a 256-bit key and the bytes stored under it.
type Item struct {
	key  [32]byte
	data []byte
}

// NewItem constructs an Item, copying data.
func NewItem(key [32]byte, data []byte) *Item {
	blob := make([]byte, len(data))
	copy(blob, data)
	return &Item{key: key, data: blob}
}

// Key returns the key of the item.
func (i *Item) Key() [32]byte {
	return i.key
}

// Data returns the raw data stored in the item.
func (i *Item) Data() []byte {
	return i.data
}

// Size returns the size of the data blob.
func (i *Item) Size() int {
	return len(i.data)
}
