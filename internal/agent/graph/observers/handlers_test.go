package observers

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" первое "),
		schema.AssistantMessage("ответ", nil),
		schema.UserMessage(" второе "),
		nil,
	}
	assert.Equal(t, "второе", lastUserContent(msgs))
	assert.Empty(t, lastUserContent([]*schema.Message{schema.SystemMessage("sys")}))
}

func TestNewAllCallbacksBuildsHandler(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks())
}
