package stacktrace

import (
	"reflect"
	"testing"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/selfieauth/internal/auth/usecase.(*Usecase).UploadSelfie(...)
	/app/internal/auth/usecase/upload_selfie.go:42 +0x1b
net/http.HandlerFunc.ServeHTTP(...)
	/usr/local/go/src/net/http/server.go:2220 +0x29
`)

	got := InternalPaths(stack)
	want := []string{"internal/auth/usecase/upload_selfie.go:42"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InternalPaths() = %#v, want %#v", got, want)
	}
}
