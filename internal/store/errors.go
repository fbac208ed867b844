package store

import "errors"

// Collection name constraints. Names become values of the documents.collection
// column and suffixes like _training are appended by the splitter, so the
// character set is kept deliberately narrow.
const (
	// MaxCollectionNameLength is the maximum length for a collection name.
	MaxCollectionNameLength = 128
)

// Sentinel errors for store operations.
// These errors are part of the Store's public API and should be checked using errors.Is().
//
// Example:
//
//	rec, err := st.Lookup(ctx, "ont_hp", id)
//	if errors.Is(err, store.ErrObjectNotFound) {
//	    // Handle missing object
//	}
var (
	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists indicates the destination collection already exists.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrObjectNotFound indicates no object with the given identifier exists
	// in the collection.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidCollection indicates the collection name format is invalid.
	ErrInvalidCollection = errors.New("invalid collection name")
)

// NormalizeCollection validates a collection name.
//
// A valid name starts with a letter and contains only alphanumeric
// characters and underscores, at most MaxCollectionNameLength bytes.
// The splitter derives names like base_training, so underscores are the
// only permitted separator.
func NormalizeCollection(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidCollection
	}
	if len(name) > MaxCollectionNameLength {
		return "", ErrInvalidCollection
	}

	first := name[0]
	if (first < 'a' || first > 'z') && (first < 'A' || first > 'Z') {
		return "", ErrInvalidCollection
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return "", ErrInvalidCollection
		}
	}

	return name, nil
}
