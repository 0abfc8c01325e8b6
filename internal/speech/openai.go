package speech

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"

	"aide/internal/audio"
)

// OpenAIVoice synthesizes speech with the OpenAI TTS endpoint and plays
// the returned MP3 locally. This is the premium head of the chain.
type OpenAIVoice struct {
	client openai.Client
	model  string
	voice  string
	player *audio.Player
}

func NewOpenAIVoice(client openai.Client, model, voice string, player *audio.Player) *OpenAIVoice {
	return &OpenAIVoice{client: client, model: model, voice: voice, player: player}
}

func (o *OpenAIVoice) Name() string { return "openai-tts" }

func (o *OpenAIVoice) Speak(ctx context.Context, text string) error {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	return o.player.PlayMP3(resp.Body)
}
