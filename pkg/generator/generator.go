package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/entrhq/testforge/pkg/agent"
	"github.com/entrhq/testforge/pkg/agent/prompts"
	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/capture"
	"github.com/entrhq/testforge/pkg/llm/tokenizer"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/storage"
	"github.com/entrhq/testforge/pkg/tools/browser"
	"github.com/entrhq/testforge/pkg/tools/testgen"
	"github.com/entrhq/testforge/pkg/types"
	"github.com/entrhq/testforge/pkg/workspace"
)

// Status values reported in Result.
const (
	StatusSuccess   = "success"
	StatusExhausted = "exhausted"
)

// Request asks for one generated test.
type Request struct {
	TargetURL   string
	Description string

	// InstanceID is optional; a short random id is allocated when empty.
	InstanceID string
}

// ToolCallRecord summarizes one tool call for observability.
type ToolCallRecord struct {
	Name         string
	Turn         int
	OutputBytes  int
	OutputTokens int
	Failed       bool
}

// Result is what one generation session produced.
type Result struct {
	InstanceID string
	Plan       []string
	Script     string
	Status     string

	// Passed reports whether the last executed script passed.
	Passed     bool
	LastReport string
	ToolCalls  []ToolCallRecord
	Usage      types.TokenUsage
	Workspace  string
	Duration   time.Duration
}

// Config holds the settings Generate checks before touching the filesystem.
type Config struct {
	APIKey       string
	MaxTurns     int
	Instructions string
}

// Saver persists generated tests. *storage.Storage implements it.
type Saver interface {
	Put(ctx context.Context, t *storage.StoredTest) error
}

// Generator runs agent sessions. It is safe for concurrent use; each call to
// Generate owns its own instance.
type Generator struct {
	cfg        Config
	runtime    agent.Runtime
	workspaces *workspace.Manager
	runner     testgen.Runner
	store      *capture.Store
	browser    browser.Provider
	saver      Saver
	tokenizer  *tokenizer.Tokenizer
	logger     *logging.Logger
	console    io.Writer
}

// Option configures a Generator.
type Option func(*Generator)

// WithBrowser gives every session its own browser from p.
func WithBrowser(p browser.Provider) Option {
	return func(g *Generator) {
		g.browser = p
	}
}

// WithSaver stores every generated script under its instance id.
func WithSaver(s Saver) Option {
	return func(g *Generator) {
		g.saver = s
	}
}

// WithLogger sets the process logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithConsole sets where the per-request banner is printed. nil disables it.
func WithConsole(w io.Writer) Option {
	return func(g *Generator) {
		g.console = w
	}
}

// WithTokenizer sets the tokenizer used for ToolCallRecord.OutputTokens.
// Without one, counts are estimated from length.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(g *Generator) {
		g.tokenizer = t
	}
}

// New creates a Generator.
func New(cfg Config, rt agent.Runtime, workspaces *workspace.Manager, r testgen.Runner, store *capture.Store, opts ...Option) (*Generator, error) {
	switch {
	case rt == nil:
		return nil, errors.New("generator requires an agent runtime")
	case workspaces == nil:
		return nil, errors.New("generator requires a workspace manager")
	case r == nil:
		return nil, errors.New("generator requires a runner")
	case store == nil:
		return nil, errors.New("generator requires a capture store")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = agent.DefaultMaxTurns
	}

	g := &Generator{
		cfg:        cfg,
		runtime:    rt,
		workspaces: workspaces,
		runner:     r,
		store:      store,
		console:    os.Stdout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.Discard("generator")
	}
	return g, nil
}

// Generate runs one session to completion.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return nil, types.ConfigurationError("OPENAI_API_KEY is not set")
	}
	if strings.TrimSpace(req.TargetURL) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, types.InvalidRequestError("target URL and test case description are required")
	}

	id := req.InstanceID
	if id == "" {
		id = types.NewInstanceID()
	}
	if err := types.ValidateInstanceID(id); err != nil {
		return nil, types.InvalidRequestError(err.Error())
	}

	// Claim the id before touching the workspace so a duplicate request
	// leaves the running instance alone.
	if err := g.store.Open(id); err != nil {
		return nil, types.InstanceBusyError(id, err)
	}

	ws, err := g.workspaces.Create(id)
	if err != nil {
		g.store.Close(id)
		return nil, err
	}

	ilog, err := logging.NewInstanceLogger(id, ws.LogsDir())
	if err != nil {
		g.logger.Warnf("instance %s: request log unavailable: %v", id, err)
	}
	defer ilog.Close()

	g.banner(id, req, ilog.LogPath())
	ilog.Infof("target URL: %s", req.TargetURL)
	ilog.Block("test case description", req.Description)

	s := &session{
		g:    g,
		id:   id,
		log:  ilog,
		inst: types.Instance{ID: id, WorkspaceRoot: ws.Path, State: types.StateCreated},
		res:  &Result{InstanceID: id, Workspace: ws.Path},
	}
	start := time.Now()
	res, err := s.run(ctx, ws, req)
	if err != nil {
		ilog.Errorf("generation failed: %v", err)
		g.logger.Errorf("instance %s: generation failed: %v", id, err)
		return nil, err
	}
	res.Duration = time.Since(start)

	ilog.Infof("generation finished: status=%s passed=%v duration=%s", res.Status, res.Passed, res.Duration)
	g.logger.Infof("instance %s: status=%s passed=%v tool_calls=%d", id, res.Status, res.Passed, len(res.ToolCalls))

	if g.saver != nil && res.Script != "" {
		err := g.saver.Put(ctx, &storage.StoredTest{ID: id, Script: res.Script, Plan: res.Plan, TargetURL: req.TargetURL})
		if err != nil {
			// The caller still gets the script; only the stored copy is missing.
			g.logger.Warnf("instance %s: failed to store test: %v", id, err)
		}
	}
	return res, nil
}

// Release drops the capture record of an instance and keeps its workspace.
func (g *Generator) Release(id string) {
	g.store.Close(id)
}

// Discard drops the capture record and the workspace of an instance. A
// missing workspace is not an error.
func (g *Generator) Discard(id string) error {
	g.store.Close(id)
	if _, err := g.workspaces.Cleanup(id, false); err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	return nil
}

func (g *Generator) banner(id string, req Request, logPath string) {
	if g.console == nil {
		return
	}
	line := strings.Repeat("=", 60)
	fmt.Fprintf(g.console, "%s\nNEW TEST GENERATION REQUEST\nInstance ID: %s\nTarget URL: %s\nTest Case: %s\n", line, id, req.TargetURL, req.Description)
	if logPath != "" {
		fmt.Fprintf(g.console, "Log File: %s\n", logPath)
	}
	fmt.Fprintln(g.console, line)
}

func (g *Generator) tools(ws *workspace.Workspace, ilog *logging.Logger) ([]tools.Tool, error) {
	plan, script, err := testgen.Tools(&testgen.InstanceContext{
		Workspace:  ws,
		Workspaces: g.workspaces,
		Store:      g.store,
		Runner:     g.runner,
		Logger:     ilog,
	})
	if err != nil {
		return nil, types.InternalError("failed to build capabilities", err)
	}
	return []tools.Tool{plan, script}, nil
}

func (g *Generator) runRequest(req Request, tt []tools.Tool) agent.RunRequest {
	return agent.RunRequest{
		Instructions: g.cfg.Instructions,
		Preamble:     prompts.Preamble(req.TargetURL),
		Task:         prompts.Task(req.TargetURL, req.Description),
		Tools:        tt,
		MaxTurns:     g.cfg.MaxTurns,
	}
}
