/*
Package render coordinates one render invocation end to end.

An Orchestrator opens one browser session per worker, attaches the exception bridge to
each session, distributes frame captures across the workers, and hands the ordered
frames to an assembler. Every invocation is a Job with its own cancellation token,
worker set and error sink.

A job moves Idle → Running → {Succeeded, Cancelled, Failed}. The terminal transition
is taken exactly once: the first of success, the first error, or cancellation wins,
and later events are recorded as diagnostics only. Cancelling a job that already
succeeded is a no-op.

	orch := render.New(provider, assembler, render.WithLogger(logger))
	job, err := orch.Start(ctx, render.Request{Composition: comp, ServeURL: url, Parallelism: 4})
	if err != nil {
		return err
	}
	out, _ := job.Wait(ctx)
*/
package render
