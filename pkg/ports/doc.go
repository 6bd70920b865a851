/*
Package ports defines the driven ports (interfaces) of the render orchestration core.

These interfaces decouple the orchestrator from its collaborators, allowing it to work
with a real headless browser or a scripted fake, any source-map backend, any output
encoder and any persistence backend.

# Key Interfaces

  - SessionProvider / Session: opens isolated browser execution contexts and captures frames.
  - ExceptionSource: the asynchronous-exception event stream of a session.
  - SourceMapResolver: resolves bundle positions to original source positions.
  - Assembler: turns the ordered captured frames into an output artifact.
  - RecordStore: persists render job records.
  - DistributedLocker: guards an output location across processes.
*/
package ports
