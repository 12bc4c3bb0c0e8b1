package codec

import "fmt"

// Get returns the serializer registered under name. JSON is the default and
// keeps stored values readable in the backend; gob trades that for smaller
// blobs on deployments where nothing else reads the store.
func Get(name string) (ISerializer, error) {
	switch name {
	case "", "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", name)
	}
}
