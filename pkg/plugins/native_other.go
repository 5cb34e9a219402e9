//go:build !cgo || !(linux || darwin || freebsd)

package plugins

// NativeOpener reports ErrNativeUnsupported on builds without Go plugin support
type NativeOpener struct{}

// Open always fails on this platform
func (NativeOpener) Open(path string) (Library, error) {
	return nil, ErrNativeUnsupported
}

// NativeSupported reports whether this build can open native plugins
func NativeSupported() bool {
	return false
}
