package parser

import (
	"fmt"

	"github.com/IsPHao/storyreel/pkg/models"
)

// promptTemplate is the per-chunk extraction instruction. The LLM runs in
// JSON mode, so the schema description doubles as the response contract.
const promptTemplate = `Analyze the following novel text and extract structured data as JSON.

Requirements:
1. Extract at most %d main characters. For each character provide:
   - "name": the character's name
   - "description": a one-sentence description
   - "personality": key personality traits
   - "appearance": an object with "gender", "age" (number), "age_stage",
     "hair", "eyes", "clothing", "features", "body_type", "height", "skin".
     Leave unknown fields empty.
2. Split the text into chapters, and each chapter into at most %d scenes
   total across all chapters. For each chapter provide:
   - "chapter_id": sequential number starting from 1
   - "title": a short chapter title
   - "scenes": the scene list
3. For each scene provide:
   - "scene_id": sequential number starting from 1, unique across chapters
   - "location": where the scene takes place
   - "time": time of day or period
   - "characters": names of characters present
   - "description": what happens, one or two sentences
   - "atmosphere": the emotional tone
   - "lighting": the lighting mood
   - "content_type": "narration" or "dialogue"
   - for narration scenes: "narration" holding the narrated text
   - for dialogue scenes: "speaker" and "dialogue_text"
   - "action": the physical actions, if any
4. Extract the main plot points as "plot_points", each with:
   - "scene_id": the scene the plot point occurs in
   - "description": what happens
   - "importance": "high", "medium" or "low"

Respond with a single JSON object with keys "characters", "chapters" and
"plot_points". Use the same language as the novel text for all extracted
content.

Novel text:
%s`

func buildPrompt(chunk string, opts models.ParseOptions) string {
	return fmt.Sprintf(promptTemplate, opts.MaxCharacters, opts.MaxScenes, chunk)
}
