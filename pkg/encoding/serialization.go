package encoding

// Serializable is implemented by values that write themselves to a bit stream.
// Decode reports malformed input through the reader's sticky error.
type Serializable interface {
	Encode(w *BitWriter)
	Decode(r *BitReader)
}
