package file

import "os"

// SetChmod replaces the permission call used after each write.
func SetChmod(fn func(string, os.FileMode) error) (restore func()) {
	prev := chmod
	chmod = fn
	return func() { chmod = prev }
}
