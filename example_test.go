package reel_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/reel/internal/testutils"
	"github.com/aretw0/reel/pkg/cancel"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/render"
)

var intro = domain.Composition{ID: "intro", Width: 320, Height: 180, FPS: 30, DurationInFrames: 4}

// Example renders every frame of a composition with two parallel sessions.
func Example() {
	orch := render.New(&testutils.FakeBrowser{}, &testutils.FakeAssembler{}, render.WithParallelism(2))

	out := orch.Render(context.Background(), render.Request{
		Composition: intro,
		ServeURL:    "http://localhost:3000",
		Output:      "out/intro",
	})
	fmt.Println(out.Kind, out.FramesCaptured, out.Artifact.Location)
	// Output:
	// succeeded 4 out/intro
}

// Example_exception shows an exception thrown by the page while frame 2 is produced.
func Example_exception() {
	browser := &testutils.FakeBrowser{
		Capture: func(_ context.Context, s *testutils.FakeSession, index int) ([]byte, error) {
			if index == 2 {
				s.Emit(domain.RawExceptionEvent{
					Description: "TypeError: title is undefined\n    at Title (bundle.js:1:5)",
					ClassName:   "TypeError",
					CallFrames:  []domain.CallFrame{{URL: "http://localhost:3000/bundle.js", ColumnNumber: 4, FunctionName: "Title"}},
				})
			}
			return []byte{0}, nil
		},
	}
	orch := render.New(browser, &testutils.FakeAssembler{})

	out := orch.Render(context.Background(), render.Request{Composition: intro, ServeURL: "http://localhost:3000"})

	var symErr *domain.SymbolicateableError
	if errors.As(out.Err, &symErr) {
		frame, _ := symErr.Frame()
		fmt.Println(out.Kind, frame, symErr.Message())
	}
	// Output:
	// failed 2 title is undefined
}

// Example_cancel cancels a render from the caller's side.
func Example_cancel() {
	src, token := cancel.New()
	browser := &testutils.FakeBrowser{
		Capture: func(ctx context.Context, _ *testutils.FakeSession, _ int) ([]byte, error) {
			src.Cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	orch := render.New(browser, &testutils.FakeAssembler{})

	out := orch.Render(context.Background(), render.Request{
		Composition: intro,
		ServeURL:    "http://localhost:3000",
		Cancel:      token,
	})
	fmt.Println(out.Kind, out.Err)
	// Output:
	// cancelled <nil>
}
