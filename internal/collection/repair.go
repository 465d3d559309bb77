package collection

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

// lenientRepair targets one corruption family: a bare array that was cut
// short or lost a closing quote. It is not general JSON recovery and its
// output may still fail to parse.
func lenientRepair(text string) string {
	t := strings.TrimSpace(text)

	first := strings.Index(t, "[")
	last := strings.LastIndex(t, "]")
	if first >= 0 && last > first {
		t = t[first : last+1]
	}

	if !strings.HasSuffix(t, "]") {
		t += "]"
	}

	if strings.Count(t, `"`)%2 == 1 {
		pos := strings.LastIndex(t, "}")
		if pos < 0 {
			pos = strings.LastIndex(t, "]")
		}
		if pos <= 0 {
			pos = len(t) - 1
		}
		t = t[:pos] + `"` + t[pos:]
	}
	return t
}
