// Package generator drives one test-authoring session per request.
//
// Generate allocates an isolated workspace and capture record for the
// instance, binds the record_plan and record_script_and_execute capabilities
// (plus browser tools when a browser provider is configured) to it, runs the
// agent and follows its event stream until the agent finishes, the turn
// budget runs out or the run fails:
//
//	INIT -> RUNNING -> PASSED     agent called task_completion
//	                -> EXHAUSTED  turn budget used up, best-effort result
//	                -> ERROR      capability or runtime failure
//
// On PASSED and EXHAUSTED the captured plan and script are returned and the
// capture record is closed. On ERROR the workspace and capture record are
// left in place for inspection; Discard removes both.
package generator
