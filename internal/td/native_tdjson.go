//go:build cgo && tdjson

package td

/*
#cgo LDFLAGS: -ltdjson

#include <stdlib.h>
#include <td/telegram/td_json_client.h>
#include <td/telegram/td_log.h>

extern void tdFatalError(char *message);

static void td_install_fatal_callback(void) {
	td_set_log_fatal_error_callback((td_log_fatal_error_callback_ptr)tdFatalError);
}
*/
import "C"

import (
	"time"
	"unsafe"
)

type tdjsonClient struct {
	ptr unsafe.Pointer
}

// NewNative creates a libtdjson client and routes the engine's fatal
// error callback to onFatal.
func NewNative(onFatal func(string)) (Native, error) {
	setFatalHandler(onFatal)
	C.td_install_fatal_callback()

	ptr := C.td_json_client_create()
	if ptr == nil {
		return nil, ErrEngineUnavailable
	}
	return &tdjsonClient{ptr: ptr}, nil
}

func (c *tdjsonClient) Send(request string) {
	cs := C.CString(request)
	defer C.free(unsafe.Pointer(cs))
	C.td_json_client_send(c.ptr, cs)
}

func (c *tdjsonClient) Receive(timeout time.Duration) string {
	res := C.td_json_client_receive(c.ptr, C.double(timeout.Seconds()))
	if res == nil {
		return ""
	}
	// Owned by the engine until the next receive on this client.
	return C.GoString(res)
}

func (c *tdjsonClient) Execute(request string) string {
	cs := C.CString(request)
	defer C.free(unsafe.Pointer(cs))
	res := C.td_json_client_execute(c.ptr, cs)
	if res == nil {
		return ""
	}
	return C.GoString(res)
}

func (c *tdjsonClient) Destroy() {
	if c.ptr == nil {
		return
	}
	C.td_json_client_destroy(c.ptr)
	c.ptr = nil
}
