// Package mcp exposes render jobs as Model Context Protocol tools, so agents can start,
// follow and cancel renders.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Starter starts render jobs. *render.Orchestrator implements it.
type Starter interface {
	Start(ctx context.Context, req render.Request) (*render.Job, error)
}

// StartArgs are the arguments of the start_render tool.
type StartArgs struct {
	Composition domain.Composition `json:"composition"`
	ServeURL    string             `json:"serve_url"`
	Frames      *domain.FrameRange `json:"frames,omitempty"`
	Parallelism int                `json:"parallelism,omitempty"`
	Timeout     string             `json:"timeout,omitempty"`
	Output      string             `json:"output,omitempty"`
	Wait        bool               `json:"wait,omitempty"`
}

// IDArgs identify a render.
type IDArgs struct {
	ID string `json:"id"`
}

// ListResult is the result of the list_renders tool.
type ListResult struct {
	Renders []string `json:"renders" jsonschema_description:"IDs of the renders this server knows about"`
}

// Server wraps an orchestrator as an MCP server.
type Server struct {
	starter   Starter
	jobs      *render.Registry
	baseCtx   context.Context
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithRegistry shares the job registry, e.g. with the HTTP adapter.
func WithRegistry(jobs *render.Registry) Option {
	return func(s *Server) {
		s.jobs = jobs
	}
}

// WithBaseContext sets the context jobs are started with.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(starter Starter, opts ...Option) *Server {
	s := &Server{
		starter: starter,
		baseCtx: context.Background(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.jobs == nil {
		s.jobs = render.NewRegistry(render.DefaultFinishedJobs)
	}
	s.mcpServer = server.NewMCPServer("reel-mcp", strings.TrimSpace(reel.Version),
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the protocol on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler serves the protocol over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_render",
		mcp.WithDescription("Start rendering a composition. With wait=true the call returns once the render finished."),
		mcp.WithObject("composition", mcp.Required(), mcp.Description("Composition: id, width, height, fps, duration_in_frames, props")),
		mcp.WithString("serve_url", mcp.Required(), mcp.Description("URL serving the composition bundle")),
		mcp.WithObject("frames", mcp.Description("Inclusive frame range {start, end} (optional)")),
		mcp.WithNumber("parallelism", mcp.Description("Concurrent browser sessions (optional)")),
		mcp.WithString("timeout", mcp.Description("Cancel after this duration, e.g. 5m (optional)")),
		mcp.WithString("output", mcp.Description("Output location (optional)")),
		mcp.WithBoolean("wait", mcp.Description("Block until the render finished")),
		mcp.WithOutputSchema[render.Status](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("get_render",
		mcp.WithDescription("Get the status of a render, including the error report of a failed one."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Render ID")),
		mcp.WithOutputSchema[render.Status](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("cancel_render",
		mcp.WithDescription("Cancel a render. Cancelling a finished render leaves its outcome unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Render ID")),
		mcp.WithOutputSchema[render.Status](),
	), mcp.NewStructuredToolHandler(s.handleCancel))

	s.mcpServer.AddTool(mcp.NewTool("list_renders",
		mcp.WithDescription("List the renders this server knows about."),
		mcp.WithOutputSchema[ListResult](),
	), mcp.NewStructuredToolHandler(s.handleList))
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (render.Status, error) {
	req := render.Request{
		Composition: args.Composition,
		ServeURL:    args.ServeURL,
		Frames:      args.Frames,
		Parallelism: args.Parallelism,
		Output:      args.Output,
	}
	if args.Timeout != "" {
		d, err := time.ParseDuration(args.Timeout)
		if err != nil {
			return render.Status{}, fmt.Errorf("%w: timeout: %v", domain.ErrInvalidRequest, err)
		}
		req.Timeout = d
	}

	job, err := s.starter.Start(s.baseCtx, req)
	if err != nil {
		return render.Status{}, err
	}
	s.jobs.Track(job)
	s.logger.Info("MCP render started", "render_id", job.ID(), "composition", req.Composition.ID)

	if args.Wait {
		// Giving up on the call leaves the render running.
		_, _ = job.Wait(ctx)
	}
	return job.Status(), nil
}

func (s *Server) handleGet(_ context.Context, _ mcp.CallToolRequest, args IDArgs) (render.Status, error) {
	job, ok := s.jobs.Lookup(args.ID)
	if !ok {
		return render.Status{}, fmt.Errorf("%w: %s", domain.ErrRenderNotFound, args.ID)
	}
	return job.Status(), nil
}

func (s *Server) handleCancel(_ context.Context, _ mcp.CallToolRequest, args IDArgs) (render.Status, error) {
	job, ok := s.jobs.Lookup(args.ID)
	if !ok {
		return render.Status{}, fmt.Errorf("%w: %s", domain.ErrRenderNotFound, args.ID)
	}
	job.Cancel()
	s.logger.Info("MCP render cancel requested", "render_id", args.ID)
	return job.Status(), nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest, _ struct{}) (ListResult, error) {
	return ListResult{Renders: s.jobs.IDs()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("reel://renders", "Known renders",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		statuses := []render.Status{}
		for _, id := range s.jobs.IDs() {
			if job, ok := s.jobs.Lookup(id); ok {
				statuses = append(statuses, job.Status())
			}
		}
		data, err := json.Marshal(statuses)
		if err != nil {
			return nil, fmt.Errorf("failed to encode renders: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "reel://renders",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
