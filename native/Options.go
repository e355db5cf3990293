package native

/*
 #include "fridabind.h"
*/
import "C"
import (
	"github.com/dsjlzh/fridabind/driver"
)

func (*Driver) OptionsNew(kind driver.OptionsKind) driver.Handle {
	return driver.Handle(uintptr(C.fb_options_new(C.int(kind))))
}

func (*Driver) OptionsSetString(o driver.Handle, name, value string) error {
	cname, cvalue := cstr(name), cstr(value)
	defer free(cname)
	defer free(cvalue)
	return optionsError(C.fb_options_set_string(C.gpointer(ptr(o)), cname, cvalue), name)
}

// OptionsString reports false when the property holds null.
func (*Driver) OptionsString(o driver.Handle, name string) (string, bool, error) {
	cname := cstr(name)
	defer free(cname)

	var value *C.gchar
	if err := optionsError(C.fb_options_get_string(C.gpointer(ptr(o)), cname, &value), name); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	defer C.g_free(C.gpointer(value))
	return gostr(value), true, nil
}

func (*Driver) OptionsSetInt(o driver.Handle, name string, value int) error {
	cname := cstr(name)
	defer free(cname)
	return optionsError(C.fb_options_set_int(C.gpointer(ptr(o)), cname, C.gint64(value)), name)
}

func (*Driver) OptionsInt(o driver.Handle, name string) (int, error) {
	cname := cstr(name)
	defer free(cname)

	var value C.gint64
	if err := optionsError(C.fb_options_get_int(C.gpointer(ptr(o)), cname, &value), name); err != nil {
		return 0, err
	}
	return int(value), nil
}

func (*Driver) OptionsSetStrings(o driver.Handle, name string, values []string) error {
	cname := cstr(name)
	defer free(cname)

	arr := cstrv(values)
	defer freeStrv(arr, len(values))
	return optionsError(C.fb_options_set_strv(C.gpointer(ptr(o)), cname, arr, C.gint(len(values))), name)
}

func (*Driver) OptionsStrings(o driver.Handle, name string) ([]string, error) {
	cname := cstr(name)
	defer free(cname)

	var arr **C.gchar
	var n C.gint
	if err := optionsError(C.fb_options_get_strv(C.gpointer(ptr(o)), cname, &arr, &n), name); err != nil {
		return nil, err
	}
	if arr == nil {
		return nil, nil
	}
	return gostrv(arr, n), nil
}

func (*Driver) OptionsSelectIdentifier(o driver.Handle, identifier string) error {
	cidentifier := cstr(identifier)
	defer free(cidentifier)
	return optionsError(C.fb_options_select_identifier(C.gpointer(ptr(o)), cidentifier), "identifier")
}

func (*Driver) OptionsSelectPID(o driver.Handle, pid uint) error {
	return optionsError(C.fb_options_select_pid(C.gpointer(ptr(o)), C.guint(pid)), "pid")
}
