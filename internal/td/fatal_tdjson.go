//go:build cgo && tdjson

package td

// #include <stdlib.h>
import "C"

//export tdFatalError
func tdFatalError(message *C.char) {
	dispatchFatal(C.GoString(message))
}
