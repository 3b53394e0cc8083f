package ai

import (
	"context"
	"encoding/base64"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

const guidancePrompt = `You are a realtime communication coach observing a live meeting.
Given the transcript below, give one short, actionable piece of guidance
(max two sentences) to help the speaker come across professional, friendly
and helpful. Respond with the guidance text only.

Transcript:
`

const scoringPrompt = `You are evaluating a speaker's demeanor in a live meeting.
Given the transcript below, rate the speaker from 1 to 10 on professionalism,
friendliness and helpfulness. Respond with a single JSON object of the form
{"professionalism": n, "friendliness": n, "helpfulness": n} and nothing else.

Transcript:
`

const visualPrompt = `You are a realtime presence coach observing a video meeting.
Describe in at most two sentences how the person on camera comes across
(posture, framing, lighting, engagement) and suggest one improvement.
Respond with the feedback text only.`

// chatPipeline drives one Groq chat model as a streaming analysis pipeline.
type chatPipeline struct {
	name   string
	model  string
	prompt string
	client *GroqClient
}

// NewGuidancePipeline returns the pipeline producing coaching guidance text.
func NewGuidancePipeline(client *GroqClient, cfg *config.PipelineConfig) Pipeline {
	return &chatPipeline{name: "guidance", model: cfg.TextModel, prompt: guidancePrompt, client: client}
}

// NewScoringPipeline returns the pipeline producing the demeanor score JSON.
func NewScoringPipeline(client *GroqClient, cfg *config.PipelineConfig) Pipeline {
	return &chatPipeline{name: "scoring", model: cfg.TextModel, prompt: scoringPrompt, client: client}
}

func (p *chatPipeline) Name() string {
	return p.name
}

func (p *chatPipeline) Start(ctx context.Context, input string) (ChunkStream, error) {
	messages := []map[string]string{
		{"role": "user", "content": p.prompt + input},
	}
	return p.client.StreamChatCompletion(ctx, p.model, messages)
}

func (p *chatPipeline) Stop() {
	p.client.CloseIdleConnections()
}

// visionPipeline drives the vision model over a JPEG frame. Start's input is
// the raw image bytes encoded for transport by the caller via EncodeFrameInput.
type visionPipeline struct {
	model  string
	client *GroqClient
}

// NewVisualPipeline returns the pipeline producing visual presence feedback.
func NewVisualPipeline(client *GroqClient, cfg *config.PipelineConfig) Pipeline {
	return &visionPipeline{model: cfg.VisionModel, client: client}
}

// EncodeFrameInput packs JPEG bytes into the data URL the visual pipeline expects.
func EncodeFrameInput(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

func (p *visionPipeline) Name() string {
	return "visual"
}

func (p *visionPipeline) Start(ctx context.Context, input string) (ChunkStream, error) {
	messages := []map[string]interface{}{
		{
			"role": "user",
			"content": []map[string]interface{}{
				{"type": "text", "text": visualPrompt},
				{"type": "image_url", "image_url": map[string]string{"url": input}},
			},
		},
	}
	return p.client.StreamChatCompletion(ctx, p.model, messages)
}

func (p *visionPipeline) Stop() {
	p.client.CloseIdleConnections()
}
