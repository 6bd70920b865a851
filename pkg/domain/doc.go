/*
Package domain contains the core domain models of the reel render orchestration core.

It defines the values that flow between the cancellation token, the exception bridge,
the symbolicator and the orchestrator. This package is kept pure and free of external
dependencies like browsers, I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Composition / FrameRange: what to render and which frames.
  - RawExceptionEvent: an asynchronous exception reported by a browser execution context.
  - UnsymbolicatedStackFrame / SymbolicatedStackFrame: stack frames before and after source-map resolution.
  - SymbolicateableError / ExceptionError / InfraError: the render error taxonomy.
  - Outcome: the single terminal result of a render (Succeeded, Cancelled or Failed).
*/
package domain
