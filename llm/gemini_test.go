package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	reply    string
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.reply, genai.RoleModel)},
		},
	}, nil
}

func Test_GeminiProvider_Chat(t *testing.T) {
	models := &fakeModels{reply: "hello"}
	p := &GeminiProvider{
		models:   models,
		defaults: Options{Model: "gemini-test", Temperature: 0.5},
	}

	reply, err := p.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleSystem, Content: "context"},
		{Role: RoleUser, Content: "q2"},
	}, WithMaxTokens(64))
	require.NoError(t, err)

	assert.Equal(t, "hello", reply)
	assert.Equal(t, "gemini-test", models.model)
	require.Len(t, models.contents, 3)
	assert.EqualValues(t, genai.RoleUser, models.contents[0].Role)
	assert.EqualValues(t, genai.RoleModel, models.contents[1].Role)
	assert.Equal(t, "a1", models.contents[1].Parts[0].Text)

	require.NotNil(t, models.config.SystemInstruction)
	assert.Equal(t, "rules\n\ncontext", models.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(64), models.config.MaxOutputTokens)
	assert.InDelta(t, 0.5, *models.config.Temperature, 1e-6)
}

func Test_GeminiProvider_Errors(t *testing.T) {
	p := &GeminiProvider{models: &fakeModels{err: errors.New("unavailable")}, defaults: Options{Model: "m"}}
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	assert.Error(t, err)

	p = &GeminiProvider{models: &fakeModels{reply: ""}, defaults: Options{Model: "m"}}
	_, err = p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func Test_NewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.Error(t, err)
}
