package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindful-youth-api/pkg/ai"
)

const emotionalSentence = "The user's current emotional state is:"

func TestBuildSystemInstructionEmotionalState(t *testing.T) {
	withState := BuildSystemInstruction("anxious")
	require.True(t, strings.HasPrefix(withState, SupportSystemInstruction))
	require.Contains(t, withState, emotionalSentence+" anxious. Please tailor your response to be mindful of this.")
	require.Equal(t, 1, strings.Count(withState, emotionalSentence))

	require.Equal(t, SupportSystemInstruction, BuildSystemInstruction(""))
	require.NotContains(t, BuildSystemInstruction("   "), emotionalSentence)
}

func TestNormalizeTurnsMergesSameRole(t *testing.T) {
	turns := NormalizeTurns([]ai.Turn{
		{Role: ai.RoleAssistant, Text: "Hello!"},
		{Role: ai.RoleUser, Text: "one"},
		{Role: ai.RoleUser, Text: "  "},
		{Role: ai.RoleUser, Text: "two"},
		{Role: ai.RoleAssistant, Text: "reply"},
	})

	require.Equal(t, []ai.Turn{
		{Role: ai.RoleAssistant, Text: "Hello!"},
		{Role: ai.RoleUser, Text: "one\n\ntwo"},
		{Role: ai.RoleAssistant, Text: "reply"},
	}, turns)
	require.Empty(t, NormalizeTurns(nil))
}

func TestSupportChatReplyBuildsPrompt(t *testing.T) {
	generator := &generatorStub{reply: "That sounds hard."}
	svc := NewSupportChatService(generator, testLogger())

	reply, err := svc.Reply(context.Background(), SupportChatRequest{
		Message:        "  I failed my exam  ",
		History:        []ai.Turn{{Role: ai.RoleAssistant, Text: GreetingMessage}},
		EmotionalState: "sad",
	})
	require.NoError(t, err)
	require.Equal(t, "That sounds hard.", reply)

	prompt := generator.lastPrompt()
	require.Equal(t, "I failed my exam", prompt.Message)
	require.Len(t, prompt.History, 1)
	require.Contains(t, prompt.SystemInstruction, emotionalSentence+" sad.")
}

func TestSupportChatReplyErrors(t *testing.T) {
	generator := &generatorStub{err: errors.New("quota exceeded")}
	svc := NewSupportChatService(generator, testLogger())

	_, err := svc.Reply(context.Background(), SupportChatRequest{Message: "hi"})
	require.ErrorIs(t, err, generator.err)

	_, err = svc.Reply(context.Background(), SupportChatRequest{Message: "  "})
	require.ErrorIs(t, err, ErrChatMessageEmpty)
}
