package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawalkaro/generator"
)

func TestTopStory(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Responses: []string{"```json\n" + `{
		"headline": "Bridge collapse in Bihar",
		"summary": "A newly built bridge collapsed within a year of inauguration.",
		"source": "https://example.com/bridge",
		"key_fact": "₹120 crore construction cost",
		"affected_people": "40,000 daily commuters",
		"politicians_involved": "State PWD minister"
	}` + "\n```"}}

	c, err := New(llm, nil, nil)
	require.NoError(t, err)

	brief, err := c.TopStory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bridge collapse in Bihar", brief.Headline)
	assert.Equal(t, "₹120 crore construction cost", brief.KeyFact)

	require.Len(t, llm.Prompts, 1)
	prompt := llm.Prompts[0]
	assert.Equal(t, "day", prompt.Extra["search_recency_filter"])
	assert.InEpsilon(t, 0.3, prompt.Temperature, 1e-9)

	story := brief.Story()
	assert.Equal(t, brief.Headline, story.Headline)
	assert.Equal(t, brief.PoliticiansInvolved, story.PoliticiansInvolved)
}

func TestTopStoryMissingHeadline(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Responses: []string{`{"summary":"something happened"}`}}
	c, err := New(llm, nil, nil)
	require.NoError(t, err)

	_, err = c.TopStory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "headline")
}

func TestTopStoryLLMError(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Err: errors.New("upstream 503")}
	c, err := New(llm, nil, nil)
	require.NoError(t, err)

	_, err = c.TopStory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch top story")
}

func TestDeepResearchUsesDedicatedModel(t *testing.T) {
	t.Parallel()

	primary := &generator.MockLLM{Responses: []string{`{"headline":"x"}`}}
	deep := &generator.MockLLM{Responses: []string{"Detailed report with dates and amounts."}}

	c, err := New(primary, deep, nil)
	require.NoError(t, err)

	report, err := c.DeepResearch(context.Background(), "history of bridge audits")
	require.NoError(t, err)
	assert.Equal(t, "Detailed report with dates and amounts.", report)
	assert.Empty(t, primary.Prompts, "primary model untouched")
	require.Len(t, deep.Prompts, 1)
	assert.Contains(t, deep.Prompts[0].User, "bridge audits")
}

func TestNewRequiresLLM(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil, nil)
	require.Error(t, err)
}
