package bridge

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/reel/pkg/domain"
)

var (
	// "at fn (url:line:col)", "at url:line:col", "at async fn (url:line:col)"
	v8FrameRe = regexp.MustCompile(`^\s*at\s+(?:async\s+)?(?:(.*?)\s+\()?(.+?):(\d+):(\d+)\)?\s*$`)
	// "fn@url:line:col"
	geckoFrameRe = regexp.MustCompile(`^\s*(.*?)@(.+?):(\d+):(\d+)\s*$`)
)

// ParseStack parses a textual browser stack dump into frames. Text positions are
// 1-based; the returned frames use the 0-based positions of structured call frames.
// Lines that are not stack frames are skipped.
func ParseStack(text string) []domain.UnsymbolicatedStackFrame {
	var frames []domain.UnsymbolicatedStackFrame
	for _, line := range strings.Split(text, "\n") {
		m := v8FrameRe.FindStringSubmatch(line)
		if m == nil {
			m = geckoFrameRe.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		ln, err1 := strconv.Atoi(m[3])
		col, err2 := strconv.Atoi(m[4])
		if err1 != nil || err2 != nil {
			continue
		}
		frames = append(frames, domain.UnsymbolicatedStackFrame{
			FunctionName: m[1],
			FileName:     m[2],
			LineNumber:   max(0, ln-1),
			ColumnNumber: max(0, col-1),
		})
	}
	return frames
}
