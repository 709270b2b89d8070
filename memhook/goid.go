package memhook

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// goid returns the ID of the calling goroutine, parsed from the header
// line of its stack trace ("goroutine 123 [running]:"). The runtime does
// not expose this directly; parsing the header is the stable, portable way
// to obtain it and costs on the order of a microsecond, which is cheap
// next to a pool operation that has hooks attached.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	head := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(head, ' '); i > 0 {
		if id, err := strconv.ParseInt(head[:i], 10, 64); err == nil {
			return id
		}
	}
	panic(fmt.Sprintf("memhook: cannot parse goroutine header %q", buf[:n]))
}
