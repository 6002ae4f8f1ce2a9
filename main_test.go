package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gamma-omg/profile-mcp/chat"
	"github.com/gamma-omg/profile-mcp/llm"
	"github.com/gamma-omg/profile-mcp/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) Chat(ctx context.Context, sessionID, message string) (chat.Reply, error) {
	args := m.Called(sessionID, message)
	return args.Get(0).(chat.Reply), args.Error(1)
}

func (m *mockChatService) End(sessionID string) {
	m.Called(sessionID)
}

func (m *mockChatService) Sessions() int {
	return m.Called().Int(0)
}

func Test_RunChat(t *testing.T) {
	svc := new(mockChatService)
	svc.On("Chat", "", "你好").Return(chat.Reply{SessionID: "s1", Reply: "你好！"}, nil).Once()
	svc.On("Chat", "s1", "年龄？").Return(chat.Reply{SessionID: "s1", Reply: chat.GenericError}, &pipeline.CapabilityError{Err: assert.AnError}).Once()

	in := strings.NewReader("你好\n\n   \n年龄？\n退出\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), svc, in, &out))

	text := out.String()
	assert.Contains(t, text, "助手: 你好！")
	assert.Contains(t, text, "助手: "+chat.GenericError)
	assert.Equal(t, 1, strings.Count(text, retryHint))
	assert.Contains(t, text, "再见")
	svc.AssertExpectations(t)
}

func Test_RunChat_OtherErrorHasNoRetryHint(t *testing.T) {
	svc := new(mockChatService)
	svc.On("Chat", "", "hi").Return(chat.Reply{SessionID: "s1", Reply: chat.GenericError}, assert.AnError).Once()

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, strings.NewReader("hi\nquit\n"), &out))

	assert.Contains(t, out.String(), chat.GenericError)
	assert.NotContains(t, out.String(), retryHint)
}

func Test_RunChat_EndOfInput(t *testing.T) {
	svc := new(mockChatService)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, strings.NewReader(""), &out))
	svc.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func Test_IsExit(t *testing.T) {
	for _, s := range []string{"退出", "quit", "EXIT", "Quit"} {
		assert.True(t, isExit(s), s)
	}
	for _, s := range []string{"退出吧", "q", ""} {
		assert.False(t, isExit(s), s)
	}
}

func Test_NewProvider(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.MaxTokens = 256

	cfg.LLM.Provider = "openai"
	_, err := newProvider(context.Background(), cfg)
	assert.Error(t, err)

	cfg.OpenAI = &OpenAIConfig{Model: "gpt-4o", ApiKey: "k"}
	gen, err := newProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAIProvider{}, gen)

	cfg.LLM.Provider = "gemini"
	_, err = newProvider(context.Background(), cfg)
	assert.Error(t, err)

	cfg.Gemini = &GeminiConfig{}
	_, err = newProvider(context.Background(), cfg)
	assert.Error(t, err)

	cfg.LLM.Provider = "other"
	_, err = newProvider(context.Background(), cfg)
	assert.Error(t, err)
}

func Test_NewApp(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "profiles")
	require.NoError(t, os.Mkdir(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "me.json"), []byte(`{"年龄": 22}`), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfgText := "log: " + filepath.Join(dir, "test.log") + "\n" +
		"doc_root: " + docs + "\n" +
		"open_ai:\n  model: gpt-4o\n  api_key: test\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgText), 0o644))

	a, err := newApp(cfgPath)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.store.Len())
	_, err = a.store.Get("me")
	assert.NoError(t, err)

	svc, err := a.chatService(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, svc.Sessions())
}

func Test_NewApp_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("llm:\n  provider: nope\n"), 0o644))

	_, err := newApp(cfgPath)
	assert.Error(t, err)
}

func Test_RootCmd(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "mcp", "api", "chat"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
