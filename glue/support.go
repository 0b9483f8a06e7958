package glue

// supportPreamble holds every C definition the generated code needs. It is
// emitted into a file without //export directives.
const supportPreamble = `/*
#include <jni.h>
#include <stdlib.h>

static jint bridge_get_env(JavaVM *vm, JNIEnv **env, jint version) {
	return (*vm)->GetEnv(vm, (void **)env, version);
}

static jclass bridge_find_class(JNIEnv *env, const char *name) {
	return (*env)->FindClass(env, name);
}

static void bridge_delete_local_ref(JNIEnv *env, jobject obj) {
	(*env)->DeleteLocalRef(env, obj);
}

static jint bridge_register_natives(JNIEnv *env, jclass cls, const JNINativeMethod *methods, jint n) {
	return (*env)->RegisterNatives(env, cls, methods, n);
}

static jstring bridge_new_string_utf(JNIEnv *env, const char *s) {
	return (*env)->NewStringUTF(env, s);
}

static const char *bridge_get_string_utf_chars(JNIEnv *env, jstring s) {
	return (*env)->GetStringUTFChars(env, s, NULL);
}

static jsize bridge_get_string_utf_length(JNIEnv *env, jstring s) {
	return (*env)->GetStringUTFLength(env, s);
}

static void bridge_release_string_utf_chars(JNIEnv *env, jstring s, const char *chars) {
	(*env)->ReleaseStringUTFChars(env, s, chars);
}

static jsize bridge_get_array_length(JNIEnv *env, jarray a) {
	return (*env)->GetArrayLength(env, a);
}

static jbyteArray bridge_new_byte_array(JNIEnv *env, jsize n) {
	return (*env)->NewByteArray(env, n);
}

static void bridge_get_byte_array_region(JNIEnv *env, jbyteArray a, jsize n, jbyte *buf) {
	(*env)->GetByteArrayRegion(env, a, 0, n, buf);
}

static void bridge_set_byte_array_region(JNIEnv *env, jbyteArray a, jsize n, const jbyte *buf) {
	(*env)->SetByteArrayRegion(env, a, 0, n, buf);
}
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/nativebridge/mutf8"
)
`

// supportHelpers are the Go helpers named by descriptor conversions and by
// the generated load hook. Strings cross the boundary as modified UTF-8.
const supportHelpers = `
func bridgeBool(v bool) C.jboolean {
	if v {
		return C.JNI_TRUE
	}
	return C.JNI_FALSE
}

func bridgeGoString(env *C.JNIEnv, s C.jstring) string {
	if s == nil {
		return ""
	}
	chars := C.bridge_get_string_utf_chars(env, s)
	if chars == nil {
		return ""
	}
	defer C.bridge_release_string_utf_chars(env, s, chars)
	n := C.bridge_get_string_utf_length(env, s)
	out, err := mutf8.Decode(C.GoBytes(unsafe.Pointer(chars), C.int(n)))
	if err != nil {
		return ""
	}
	return out
}

func bridgeJString(env *C.JNIEnv, s string) C.jstring {
	buf := C.CBytes(mutf8.Encode(s))
	defer C.free(buf)
	return C.bridge_new_string_utf(env, (*C.char)(buf))
}

func bridgeGoBytes(env *C.JNIEnv, a C.jbyteArray) []byte {
	if a == nil {
		return nil
	}
	n := C.bridge_get_array_length(env, C.jarray(a))
	out := make([]byte, int(n))
	if n > 0 {
		C.bridge_get_byte_array_region(env, a, n, (*C.jbyte)(unsafe.Pointer(&out[0])))
	}
	return out
}

func bridgeJByteArray(env *C.JNIEnv, b []byte) C.jbyteArray {
	a := C.bridge_new_byte_array(env, C.jsize(len(b)))
	if a != nil && len(b) > 0 {
		C.bridge_set_byte_array_region(env, a, C.jsize(len(b)), (*C.jbyte)(unsafe.Pointer(&b[0])))
	}
	return a
}

func bridgeEnv(vm *C.JavaVM, version C.jint) (*C.JNIEnv, bool) {
	var env *C.JNIEnv
	if C.bridge_get_env(vm, &env, version) != C.JNI_OK {
		return nil, false
	}
	return env, true
}

type bridgeMethod struct {
	name      string
	signature string
	fn        unsafe.Pointer
}

// bridgeRegister registers methods on class in a single call. Names are
// modified UTF-8 literals; they are copied to C memory because the method
// table lives there, and C.CString's terminator lands after the literal's
// own, which is redundant but harmless.
func bridgeRegister(env *C.JNIEnv, class string, methods []bridgeMethod) bool {
	cclass := C.CString(class)
	defer C.free(unsafe.Pointer(cclass))
	cls := C.bridge_find_class(env, cclass)
	if cls == nil {
		return false
	}
	defer C.bridge_delete_local_ref(env, C.jobject(cls))

	n := len(methods)
	table := (*C.JNINativeMethod)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.JNINativeMethod{}))))
	defer C.free(unsafe.Pointer(table))
	entries := unsafe.Slice(table, n)
	for i, m := range methods {
		entries[i].name = C.CString(m.name)
		entries[i].signature = C.CString(m.signature)
		entries[i].fnPtr = m.fn
	}
	rc := C.bridge_register_natives(env, cls, table, C.jint(n))
	for i := range entries {
		C.free(unsafe.Pointer(entries[i].name))
		C.free(unsafe.Pointer(entries[i].signature))
	}
	return rc == C.JNI_OK
}
`
