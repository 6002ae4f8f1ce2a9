package pipeline

import (
	"errors"

	"github.com/gamma-omg/profile-mcp/jsonval"
	"github.com/gamma-omg/profile-mcp/llm"
)

type Phase string

const (
	PhaseRetrieve Phase = "retrieve"
	PhaseGenerate Phase = "generate"
	PhaseEnd      Phase = "end"
)

// Apology is returned by Reply when the history holds no assistant message.
const Apology = "抱歉，处理您的问题时出现了错误。"

var ErrCapability = errors.New("generation capability failure")

// CapabilityError is returned when the model could not produce a reply. It matches
// both ErrCapability and the underlying cause with errors.Is.
type CapabilityError struct {
	Err error
}

func (e *CapabilityError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *CapabilityError) Unwrap() []error {
	return []error{ErrCapability, e.Err}
}

// State is the running conversation of one session. It must only be used by one
// goroutine at a time.
type State struct {
	Messages []llm.Message
	Context  jsonval.Value
	Phase    Phase
}

// Reply returns the most recent assistant message.
func Reply(st *State) string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == llm.RoleAssistant {
			return st.Messages[i].Content
		}
	}

	return Apology
}
