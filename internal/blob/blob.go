// Package blob stores receipt image files and maps them to the public
// references kept in receipt records.
package blob

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"
)

// URLPrefix is the public path under which image files are served.
const URLPrefix = "/uploads/receipts/"

// GCSPrefix is the object prefix images are kept under in a bucket.
const GCSPrefix = "receipts"

// ErrNotFound is returned when an image file does not exist.
var ErrNotFound = errors.New("image file not found")

// ErrInvalidName is returned for references that do not name a single file
// under URLPrefix.
var ErrInvalidName = errors.New("invalid image file name")

// ImageStore holds image files addressed by bare file name.
type ImageStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	// List returns the names of stored files starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,254}$`)

// ValidName reports whether name is a plain file name safe to store.
func ValidName(name string) bool {
	return validName.MatchString(name) && !strings.Contains(name, "..")
}

// URL returns the public reference for a stored file name.
func URL(name string) string {
	return URLPrefix + name
}

// NameFromURL extracts the file name from a public reference.
func NameFromURL(ref string) (string, error) {
	if !strings.HasPrefix(ref, URLPrefix) {
		return "", ErrInvalidName
	}
	name := strings.TrimPrefix(ref, URLPrefix)
	if name != path.Base(name) || !ValidName(name) {
		return "", ErrInvalidName
	}
	return name, nil
}
