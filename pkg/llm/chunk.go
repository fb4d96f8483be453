package llm

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Error    error
	Usage    *Usage
	Role     string
	Content  string
	Finished bool
}

// Usage reports token counts for a completed request, when the server
// provides them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// HasContent reports whether the chunk carries message text.
func (c *StreamChunk) HasContent() bool {
	return c.Content != ""
}
