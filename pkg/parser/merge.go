package parser

import (
	"strings"

	"github.com/IsPHao/storyreel/pkg/models"
)

// mergeChunks combines per-chunk extraction results into one result with
// globally dense chapter and scene IDs. Characters are merged by name.
func mergeChunks(chunks []*models.NovelParseResult) *models.NovelParseResult {
	if len(chunks) == 1 {
		renumber(chunks[0])
		return chunks[0]
	}

	merged := &models.NovelParseResult{}
	characters := newCharacterMerger()

	for _, chunk := range chunks {
		// Chunk-local scene IDs are rewritten to the global sequence; plot
		// points follow their scene through the same mapping.
		sceneIDs := make(map[int]int)
		nextScene := merged.TotalScenes()
		for _, ch := range chunk.Chapters {
			rebased := models.Chapter{
				ChapterID: len(merged.Chapters) + 1,
				Title:     ch.Title,
				Summary:   ch.Summary,
				Scenes:    make([]models.Scene, 0, len(ch.Scenes)),
			}
			for _, sc := range ch.Scenes {
				nextScene++
				sceneIDs[sc.SceneID] = nextScene
				sc.SceneID = nextScene
				rebased.Scenes = append(rebased.Scenes, sc)
			}
			merged.Chapters = append(merged.Chapters, rebased)
		}

		for _, pp := range chunk.PlotPoints {
			if id, ok := sceneIDs[pp.SceneID]; ok {
				pp.SceneID = id
				merged.PlotPoints = append(merged.PlotPoints, pp)
			}
		}

		for _, c := range chunk.Characters {
			characters.add(c)
		}
	}

	merged.Characters = characters.result()
	return merged
}

// renumber rewrites chapter and scene IDs into dense 1-based sequences,
// dropping whatever numbering the LLM produced.
func renumber(res *models.NovelParseResult) {
	sceneIDs := make(map[int]int)
	next := 0
	for i := range res.Chapters {
		res.Chapters[i].ChapterID = i + 1
		for j := range res.Chapters[i].Scenes {
			next++
			sceneIDs[res.Chapters[i].Scenes[j].SceneID] = next
			res.Chapters[i].Scenes[j].SceneID = next
		}
	}
	kept := res.PlotPoints[:0]
	for _, pp := range res.PlotPoints {
		if id, ok := sceneIDs[pp.SceneID]; ok {
			pp.SceneID = id
			kept = append(kept, pp)
		}
	}
	res.PlotPoints = kept
}

// characterMerger deduplicates characters by name while preserving the
// order of first appearance.
type characterMerger struct {
	order []string
	byName map[string]*models.CharacterInfo
}

func newCharacterMerger() *characterMerger {
	return &characterMerger{byName: make(map[string]*models.CharacterInfo)}
}

func (m *characterMerger) add(c models.CharacterInfo) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return
	}
	existing, ok := m.byName[name]
	if !ok {
		c.Name = name
		m.order = append(m.order, name)
		m.byName[name] = &c
		return
	}
	existing.Description = joinUnique(existing.Description, c.Description)
	existing.Personality = joinUnique(existing.Personality, c.Personality)
	if existing.Role == "" {
		existing.Role = c.Role
	}
	mergeAppearance(&existing.Appearance, &c.Appearance)
	existing.AgeVariants = append(existing.AgeVariants, c.AgeVariants...)
}

func (m *characterMerger) result() []models.CharacterInfo {
	out := make([]models.CharacterInfo, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.byName[name])
	}
	return out
}

// joinUnique appends b to a unless a already contains it.
func joinUnique(a, b string) string {
	b = strings.TrimSpace(b)
	switch {
	case b == "":
		return a
	case a == "":
		return b
	case strings.Contains(a, b):
		return a
	default:
		return a + " " + b
	}
}

// mergeAppearance keeps, per attribute, the longest non-empty value seen so
// far on the assumption that longer descriptions carry more detail.
func mergeAppearance(dst, src *models.CharacterAppearance) {
	keepLonger(&dst.Gender, src.Gender)
	keepLonger(&dst.AgeStage, src.AgeStage)
	keepLonger(&dst.Hair, src.Hair)
	keepLonger(&dst.Eyes, src.Eyes)
	keepLonger(&dst.Clothing, src.Clothing)
	keepLonger(&dst.Features, src.Features)
	keepLonger(&dst.BodyType, src.BodyType)
	keepLonger(&dst.Height, src.Height)
	keepLonger(&dst.Skin, src.Skin)
	if dst.Age == nil {
		dst.Age = src.Age
	}
}

func keepLonger(dst *string, src string) {
	if len(src) > len(*dst) {
		*dst = src
	}
}
