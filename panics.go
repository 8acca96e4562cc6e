package logic

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// callSafely runs fn and converts a panic into an error carrying the
// recovered value and a trimmed stack.
func callSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn()
}

func panicError(r any) error {
	stack := make([]byte, 8096)
	n := runtime.Stack(stack, false)
	meta := map[string]any{
		"panic": fmt.Sprint(r),
		"stack": string(cleanStackTrace(stack[:n])),
	}
	var source error
	if e, ok := r.(error); ok {
		source = e
	}
	return cloneLogicError(ErrPanic, fmt.Sprint(r), source, meta)
}

func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// drop everything up to and including the runtime panic frame
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}

// GetGoroutineID returns the id of the calling goroutine.
func GetGoroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	idField := strings.Fields(strings.TrimPrefix(string(buf), "goroutine "))[0]
	id, _ := strconv.ParseUint(idField, 10, 64)
	return id
}
