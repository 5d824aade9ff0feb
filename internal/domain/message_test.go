package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentUnmarshalObject(t *testing.T) {
	var c MessageContent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"attachment","url":"https://files/x.pdf","name":"x.pdf","mime":"application/pdf"}`), &c))
	assert.Equal(t, ContentAttachment, c.Type)
	assert.Equal(t, "x.pdf", c.Name)
	assert.False(t, c.IsZero())
}

func TestMessageContentUnmarshalBareString(t *testing.T) {
	var c MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"hola mundo"`), &c))
	assert.Equal(t, ContentText, c.Type)
	assert.Equal(t, "hola mundo", c.Text)
}

func TestMessageContentUnmarshalUntaggedObjectDefaultsToText(t *testing.T) {
	var c MessageContent
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hola"}`), &c))
	assert.Equal(t, ContentText, c.Type)
	assert.Equal(t, "hola", c.Text)
}

func TestMessageContentIsZero(t *testing.T) {
	assert.True(t, MessageContent{}.IsZero())
	assert.True(t, TextContent("   ").IsZero())
	assert.False(t, TextContent("hola").IsZero())
	assert.False(t, AttachmentContent("https://files/x.pdf", "x.pdf", "application/pdf").IsZero())
}

func TestChatKindValid(t *testing.T) {
	assert.True(t, KindSST.Valid())
	assert.True(t, KindInterventor.Valid())
	assert.True(t, KindSoporte.Valid())
	assert.False(t, ChatKind("billing").Valid())
	assert.False(t, ChatKind("").Valid())
}
