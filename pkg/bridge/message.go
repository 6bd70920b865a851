package bridge

import "strings"

// DelayRenderCallstackToken separates a delayRender timeout message from the stack of
// the delayRender call appended by the instrumentation layer.
const DelayRenderCallstackToken = "The delayRender was called:"

// StripTypePrefix removes a leading "<typeName>: " from description, once.
func StripTypePrefix(description, typeName string) string {
	return strings.TrimPrefix(description, typeName+": ")
}

// KeepLeadingLines drops the engine's textual stack dump from message: with
// callFrames structured frames, only the leading max(1, lines-callFrames) lines are kept.
func KeepLeadingLines(message string, callFrames int) string {
	lines := strings.Split(message, "\n")
	keep := max(1, len(lines)-callFrames)
	return strings.Join(lines[:keep], "\n")
}

// CleanMessage strips the type prefix from description and removes the trailing
// stack dump that duplicates the structured call frames.
func CleanMessage(description, typeName string, callFrames int) string {
	return KeepLeadingLines(StripTypePrefix(description, typeName), callFrames)
}

// TruncateAtMarker cuts message at the first DelayRenderCallstackToken, if any.
func TruncateAtMarker(message string) string {
	head, _ := splitAtMarker(message)
	return head
}

func splitAtMarker(message string) (head, tail string) {
	i := strings.Index(message, DelayRenderCallstackToken)
	if i == -1 {
		return message, ""
	}
	return message[:i], message[i+len(DelayRenderCallstackToken):]
}
