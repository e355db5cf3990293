package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"unsafe"

	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind/driver"
)

// takeError copies and frees gerr.
func takeError(gerr *C.GError) error {
	if gerr == nil {
		return nil
	}
	code := driver.ErrorUnknown
	if C.fb_is_frida_error(gerr) != 0 {
		code = driver.ErrorCode(gerr.code)
	}
	err := &driver.Error{Code: code, Message: gostr(gerr.message)}
	C.g_error_free(gerr)
	return err
}

// result hands out an owned native object unless gerr is set, in which case
// the object is released and a zero handle returned.
func result(p unsafe.Pointer, gerr *C.GError) (driver.Handle, error) {
	if err := takeError(gerr); err != nil {
		if p != nil {
			C.frida_unref(C.gpointer(p))
		}
		return 0, err
	}
	return driver.Handle(uintptr(p)), nil
}

func optionsError(rc C.int, name string) error {
	switch rc {
	case C.FB_OK:
		return nil
	case C.FB_UNSUPPORTED:
		return driver.ErrUnsupported
	case C.FB_TYPE_MISMATCH:
		return &driver.Error{Code: driver.ErrorInvalidArgument, Message: "Property " + name + " has a different type"}
	}
	return xerrors.Errorf("option %s: unexpected result %d", name, int(rc))
}

func gostr(s *C.gchar) string {
	if s == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(s)))
}

// gostrOK reports false for a null string.
func gostrOK(s *C.gchar) (string, bool) {
	if s == nil {
		return "", false
	}
	return gostr(s), true
}

// cstr allocates a C copy of s. The caller frees it with free.
func cstr(s string) *C.gchar {
	return (*C.gchar)(unsafe.Pointer(C.CString(s)))
}

func free(s *C.gchar) {
	C.free(unsafe.Pointer(s))
}

// newBytes copies data into a new GBytes.
func newBytes(data []byte) *C.GBytes {
	if len(data) == 0 {
		return C.g_bytes_new(nil, 0)
	}
	return C.g_bytes_new(C.gconstpointer(unsafe.Pointer(&data[0])), C.gsize(len(data)))
}

// takeBytes copies and unrefs b.
func takeBytes(b *C.GBytes) []byte {
	if b == nil {
		return nil
	}
	defer C.g_bytes_unref(b)
	var size C.gsize
	data := C.g_bytes_get_data(b, &size)
	if size == 0 {
		return []byte{}
	}
	return C.GoBytes(unsafe.Pointer(data), C.int(size))
}

// cstrv builds a NULL terminated copy of values. Release it with freeStrv.
func cstrv(values []string) **C.gchar {
	n := len(values)
	arr := (**C.gchar)(C.malloc(C.size_t(n+1) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	items := unsafe.Slice(arr, n+1)
	for i, v := range values {
		items[i] = cstr(v)
	}
	items[n] = nil
	return arr
}

func freeStrv(arr **C.gchar, n int) {
	for _, s := range unsafe.Slice(arr, n) {
		free(s)
	}
	C.free(unsafe.Pointer(arr))
}

func gostrv(arr **C.gchar, n C.gint) []string {
	if arr == nil || n <= 0 {
		return []string{}
	}
	result := make([]string, 0, int(n))
	for _, s := range unsafe.Slice(arr, int(n)) {
		result = append(result, gostr(s))
	}
	return result
}

// goParameters copies a GHashTable<string, GVariant> without taking
// ownership of it.
func goParameters(table *C.GHashTable) map[string]any {
	result := make(map[string]any)
	if table == nil {
		return result
	}
	var iter C.GHashTableIter
	var key, value C.gpointer
	C.g_hash_table_iter_init(&iter, table)
	for C.g_hash_table_iter_next(&iter, &key, &value) != 0 {
		result[gostr((*C.gchar)(unsafe.Pointer(key)))] = goVariant((*C.GVariant)(unsafe.Pointer(value)))
	}
	return result
}

func goVariant(v *C.GVariant) any {
	if v == nil {
		return nil
	}
	switch C.fb_variant_kind(v) {
	case C.FB_VARIANT_STRING:
		return gostr(C.g_variant_get_string(v, nil))
	case C.FB_VARIANT_BOOLEAN:
		return C.g_variant_get_boolean(v) != 0
	case C.FB_VARIANT_INT64:
		return int64(C.g_variant_get_int64(v))
	case C.FB_VARIANT_UINT64:
		return uint64(C.g_variant_get_uint64(v))
	case C.FB_VARIANT_INT32:
		return int32(C.g_variant_get_int32(v))
	case C.FB_VARIANT_UINT32:
		return uint32(C.g_variant_get_uint32(v))
	case C.FB_VARIANT_DOUBLE:
		return float64(C.g_variant_get_double(v))
	case C.FB_VARIANT_BYTE:
		return uint8(C.g_variant_get_byte(v))
	case C.FB_VARIANT_BYTES:
		var n C.gsize
		data := C.g_variant_get_fixed_array(v, &n, 1)
		if n == 0 {
			return []byte{}
		}
		return C.GoBytes(unsafe.Pointer(data), C.int(n))
	case C.FB_VARIANT_VARIANT:
		inner := C.g_variant_get_variant(v)
		defer C.g_variant_unref(inner)
		return goVariant(inner)
	case C.FB_VARIANT_VARDICT:
		result := make(map[string]any)
		n := C.g_variant_n_children(v)
		for i := C.gsize(0); i < n; i++ {
			entry := C.g_variant_get_child_value(v, i)
			key := C.g_variant_get_child_value(entry, 0)
			value := C.g_variant_get_child_value(entry, 1)
			result[gostr(C.g_variant_get_string(key, nil))] = goVariant(value)
			C.g_variant_unref(value)
			C.g_variant_unref(key)
			C.g_variant_unref(entry)
		}
		return result
	case C.FB_VARIANT_ARRAY:
		n := C.g_variant_n_children(v)
		result := make([]any, 0, int(n))
		for i := C.gsize(0); i < n; i++ {
			child := C.g_variant_get_child_value(v, i)
			result = append(result, goVariant(child))
			C.g_variant_unref(child)
		}
		return result
	}
	s := C.g_variant_print(v, 0)
	defer C.g_free(C.gpointer(s))
	return gostr(s)
}
