package bridge_test

import (
	"testing"

	"github.com/aretw0/reel/pkg/bridge"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseStack(t *testing.T) {
	text := `
    at delayRender (http://localhost:3000/bundle.js:12:34)
    at async loadFont (http://localhost:3000/bundle.js:40:2)
    at http://localhost:3000/vendor.js:1:100
    at new Promise (<anonymous>)
render@http://localhost:3000/bundle.js:3:9
not a frame`

	frames := bridge.ParseStack(text)

	assert.Equal(t, []domain.UnsymbolicatedStackFrame{
		{FunctionName: "delayRender", FileName: "http://localhost:3000/bundle.js", LineNumber: 11, ColumnNumber: 33},
		{FunctionName: "loadFont", FileName: "http://localhost:3000/bundle.js", LineNumber: 39, ColumnNumber: 1},
		{FunctionName: "", FileName: "http://localhost:3000/vendor.js", LineNumber: 0, ColumnNumber: 99},
		{FunctionName: "render", FileName: "http://localhost:3000/bundle.js", LineNumber: 2, ColumnNumber: 8},
	}, frames)
}

func TestParseStack_Empty(t *testing.T) {
	assert.Empty(t, bridge.ParseStack(""))
	assert.Empty(t, bridge.ParseStack("just a message"))
}
