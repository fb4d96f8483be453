package types

// AgentEventType names the kind of an AgentEvent. It is used for logging only;
// consumers dispatch on the concrete event type with a type switch.
type AgentEventType string

const (
	EventTypeAgentUpdated     AgentEventType = "agent_updated"      // EventTypeAgentUpdated indicates the active agent changed.
	EventTypeToolCallStarted  AgentEventType = "tool_call_started"  // EventTypeToolCallStarted indicates a tool invocation began.
	EventTypeToolCallOutput   AgentEventType = "tool_call_output"   // EventTypeToolCallOutput indicates a tool invocation produced output.
	EventTypeMessage          AgentEventType = "message"            // EventTypeMessage indicates the agent emitted a complete message.
	EventTypeTokenUsage       AgentEventType = "token_usage"        // EventTypeTokenUsage carries token counts for one completion.
	EventTypeTurnLimitReached AgentEventType = "turn_limit_reached" // EventTypeTurnLimitReached indicates the turn budget ran out.
	EventTypeRunFailed        AgentEventType = "run_failed"         // EventTypeRunFailed indicates an unrecoverable runtime error.
)

// AgentEvent is the closed set of events streamed by an agent runtime.
// The set is sealed by the unexported marker method; every variant lives in
// this file.
type AgentEvent interface {
	Kind() AgentEventType
	agentEvent()
}

// AgentUpdated is emitted when the runtime starts (or hands off to) an agent.
type AgentUpdated struct {
	AgentName string
}

// ToolCallStarted is emitted before a tool executes.
type ToolCallStarted struct {
	ToolName string
	Input    map[string]interface{}
	Turn     int
}

// ToolCallOutput is emitted after a tool finishes. Err is set when the tool
// failed; Output then holds the message that was fed back to the agent.
type ToolCallOutput struct {
	ToolName string
	Output   string
	Metadata map[string]interface{}
	Err      error
	Turn     int
}

// MessageOutput is a complete assistant message (never a token delta).
type MessageOutput struct {
	Content string
}

// TokenUsage contains token usage statistics from one LLM call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TurnLimitReached is emitted once when the runtime stops because the turn
// budget is exhausted. It is always the last event before the stream closes.
type TurnLimitReached struct {
	MaxTurns int
}

// RunFailed is emitted once when the runtime stops on an error it cannot
// recover from. It is always the last event before the stream closes.
type RunFailed struct {
	Err error
}

func (AgentUpdated) Kind() AgentEventType     { return EventTypeAgentUpdated }
func (ToolCallStarted) Kind() AgentEventType  { return EventTypeToolCallStarted }
func (ToolCallOutput) Kind() AgentEventType   { return EventTypeToolCallOutput }
func (MessageOutput) Kind() AgentEventType    { return EventTypeMessage }
func (TokenUsage) Kind() AgentEventType       { return EventTypeTokenUsage }
func (TurnLimitReached) Kind() AgentEventType { return EventTypeTurnLimitReached }
func (RunFailed) Kind() AgentEventType        { return EventTypeRunFailed }

func (AgentUpdated) agentEvent()     {}
func (ToolCallStarted) agentEvent()  {}
func (ToolCallOutput) agentEvent()   {}
func (MessageOutput) agentEvent()    {}
func (TokenUsage) agentEvent()       {}
func (TurnLimitReached) agentEvent() {}
func (RunFailed) agentEvent()        {}

// IsTerminal reports whether the event ends a run.
func IsTerminal(e AgentEvent) bool {
	switch e.(type) {
	case TurnLimitReached, RunFailed:
		return true
	default:
		return false
	}
}
