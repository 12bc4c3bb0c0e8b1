package codec

// ISerializer is the interface for all blob serializers. Collections stored
// in the key-value backend are always encoded to a single string value; the
// serializer decides the encoding.
type ISerializer interface {
	// Serialize serializes a value into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(v interface{}) ([]byte, error)
	// Deserialize deserializes a byte array into the value pointed to by v
	// It returns an error if any
	Deserialize(b []byte, v interface{}) error
}
