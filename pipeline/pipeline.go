// Package pipeline runs one conversational turn: select profile context for the latest
// question, then ask the model to answer with that context.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gamma-omg/profile-mcp/docstore"
	"github.com/gamma-omg/profile-mcp/jsonval"
	"github.com/gamma-omg/profile-mcp/llm"
)

// ProfilePlaceholder in a system prompt is replaced by the selected context.
const ProfilePlaceholder = "{profile_info}"

const DefaultGreeting = "你是个人资料助手，请根据提供的资料回答关于资料主人的问题。"

const DefaultSystemPrompt = `你是资料主人的个人助手，你的任务是回答关于资料主人的问题。

请根据提供的个人资料信息回答问题。如果问题与资料主人无关，请礼貌地引导用户询问关于资料主人的信息。

回答时要遵循以下规则:
1. 回答要简洁、准确、专业
2. 只使用提供的资料信息回答问题，不要编造信息，不要使用markdown语法
3. 如果资料中没有相关信息，请直接说明"抱歉，我没有这方面的信息"
4. 保持活泼的语气，适当增加emoji，引导用户阅读兴趣
5. 回答要有条理

个人资料信息:
{profile_info}`

type ProfileSource interface {
	Get(id string) (docstore.Document, error)
	List() []docstore.Document
}

type ContextSelector interface {
	Select(profile jsonval.Value, query string) jsonval.Value
}

type Config struct {
	// ProfileID names the document questions are answered from. Empty means the first
	// loaded document.
	ProfileID    string
	SystemPrompt string
	Greeting     string
	LLMOptions   []llm.Option
}

type Pipeline struct {
	log       *slog.Logger
	docs      ProfileSource
	selector  ContextSelector
	gen       llm.Provider
	profileID string
	prompt    string
	greeting  string
	opts      []llm.Option
}

func New(log *slog.Logger, docs ProfileSource, selector ContextSelector, gen llm.Provider, cfg Config) *Pipeline {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}

	return &Pipeline{
		log:       log,
		docs:      docs,
		selector:  selector,
		gen:       gen,
		profileID: cfg.ProfileID,
		prompt:    cfg.SystemPrompt,
		greeting:  cfg.Greeting,
		opts:      cfg.LLMOptions,
	}
}

// NewState starts a conversation whose history opens with the greeting system message.
func (p *Pipeline) NewState() *State {
	return &State{
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: p.greeting}},
		Context:  jsonval.NewObject(),
		Phase:    PhaseRetrieve,
	}
}

// Turn appends the user's message and runs the state machine to the end. On a
// *CapabilityError the user message stays in the history without an answer and the
// next Turn starts over from retrieval.
func (p *Pipeline) Turn(ctx context.Context, st *State, text string) (string, error) {
	st.Messages = append(st.Messages, llm.Message{Role: llm.RoleUser, Content: text})
	st.Phase = PhaseRetrieve

	for st.Phase != PhaseEnd {
		if err := p.Step(ctx, st); err != nil {
			return "", err
		}
	}

	return Reply(st), nil
}

// Step performs the work of the current phase and advances it.
func (p *Pipeline) Step(ctx context.Context, st *State) error {
	switch st.Phase {
	case PhaseRetrieve:
		p.retrieve(st)
		st.Phase = PhaseGenerate
		return nil
	case PhaseGenerate:
		if err := p.generate(ctx, st); err != nil {
			return err
		}
		st.Phase = PhaseEnd
		return nil
	case PhaseEnd:
		return nil
	}

	return fmt.Errorf("unknown phase %q", st.Phase)
}

func (p *Pipeline) retrieve(st *State) {
	if len(st.Messages) == 0 || st.Messages[len(st.Messages)-1].Role != llm.RoleUser {
		return
	}

	query := st.Messages[len(st.Messages)-1].Content
	st.Context = p.selector.Select(p.profile(), query)
	p.log.Debug("context selected", "query", query, "kind", st.Context.Kind().String(), "size", st.Context.Len())
}

func (p *Pipeline) profile() jsonval.Value {
	if p.profileID != "" {
		doc, err := p.docs.Get(p.profileID)
		if err == nil {
			return doc.Content
		}
		p.log.Warn("profile document unavailable", "id", p.profileID, "error", err)
	}

	docs := p.docs.List()
	if len(docs) == 0 {
		return jsonval.NewObject()
	}

	return docs[0].Content
}

func (p *Pipeline) generate(ctx context.Context, st *State) error {
	info, err := st.Context.Indent("  ")
	if err != nil {
		return &CapabilityError{Err: fmt.Errorf("serializing context: %w", err)}
	}

	system := strings.ReplaceAll(p.prompt, ProfilePlaceholder, info)
	if !strings.Contains(p.prompt, ProfilePlaceholder) {
		system += "\n\n" + info
	}

	history := make([]llm.Message, 0, len(st.Messages)+1)
	history = append(history, llm.Message{Role: llm.RoleSystem, Content: system})
	history = append(history, st.Messages...)

	reply, err := p.gen.Chat(ctx, history, p.opts...)
	if err != nil {
		p.log.Error("generation failed", "error", err)
		return &CapabilityError{Err: err}
	}

	st.Messages = append(st.Messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
	return nil
}
