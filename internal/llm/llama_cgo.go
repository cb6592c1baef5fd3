//go:build llama

package llm

// Link against libllama next to the built binary (./bin), with an rpath of
// $ORIGIN so the loader finds it at runtime without environment variables.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
