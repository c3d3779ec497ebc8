//go:build !cgo || !tdjson

package td

// NewNative reports ErrEngineUnavailable when libtdjson is not linked in.
func NewNative(onFatal func(string)) (Native, error) {
	return nil, ErrEngineUnavailable
}
