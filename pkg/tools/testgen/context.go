package testgen

import (
	"context"
	"errors"

	"github.com/entrhq/testforge/pkg/capture"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/runner"
	"github.com/entrhq/testforge/pkg/workspace"
)

// Runner installs dependencies and runs the suite in a tests directory.
// *runner.Runner implements it.
type Runner interface {
	InstallDependencies(ctx context.Context, testDir string) (runner.Result, bool)
	Run(ctx context.Context, testDir string) runner.Result
}

// InstanceContext is everything a capability needs to act for one instance.
type InstanceContext struct {
	Workspace  *workspace.Workspace
	Workspaces *workspace.Manager
	Store      *capture.Store
	Runner     Runner
	Logger     *logging.Logger
}

func (c *InstanceContext) validate() error {
	switch {
	case c == nil:
		return errors.New("instance context is nil")
	case c.Workspace == nil:
		return errors.New("instance context has no workspace")
	case c.Workspaces == nil:
		return errors.New("instance context has no workspace manager")
	case c.Store == nil:
		return errors.New("instance context has no capture store")
	case c.Runner == nil:
		return errors.New("instance context has no runner")
	}
	return nil
}

func (c *InstanceContext) logger() *logging.Logger {
	if c.Logger == nil {
		c.Logger = logging.Discard("instance:" + c.Workspace.ID)
	}
	return c.Logger
}

// Tools builds both capabilities for the instance.
func Tools(ictx *InstanceContext) (*RecordPlanTool, *RecordScriptTool, error) {
	plan, err := NewRecordPlanTool(ictx)
	if err != nil {
		return nil, nil, err
	}
	script, err := NewRecordScriptTool(ictx)
	if err != nil {
		return nil, nil, err
	}
	return plan, script, nil
}
