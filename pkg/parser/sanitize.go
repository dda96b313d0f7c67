package parser

import (
	"fmt"
	"strings"

	"github.com/IsPHao/storyreel/pkg/models"
)

// validateResult checks the structural invariants of a merged result and
// returns the first violation found.
func validateResult(res *models.NovelParseResult) error {
	for i, c := range res.Characters {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("character %d has no name", i)
		}
	}
	seen := make(map[int]bool)
	for _, ch := range res.Chapters {
		if len(ch.Scenes) == 0 {
			return fmt.Errorf("chapter %d has no scenes", ch.ChapterID)
		}
		for _, sc := range ch.Scenes {
			if sc.SceneID <= 0 || seen[sc.SceneID] {
				return fmt.Errorf("chapter %d has invalid scene id %d", ch.ChapterID, sc.SceneID)
			}
			seen[sc.SceneID] = true
			switch sc.ContentType {
			case models.ContentTypeNarration, models.ContentTypeDialogue:
			default:
				return fmt.Errorf("scene %d has unknown content type %q", sc.SceneID, sc.ContentType)
			}
			switch sc.ContentType {
			case models.ContentTypeDialogue:
				if strings.TrimSpace(sc.Speaker) == "" {
					return fmt.Errorf("dialogue scene %d has no speaker", sc.SceneID)
				}
				if strings.TrimSpace(sc.DialogueText) == "" {
					return fmt.Errorf("dialogue scene %d has no dialogue text", sc.SceneID)
				}
			case models.ContentTypeNarration:
				if strings.TrimSpace(sc.Narration) == "" {
					return fmt.Errorf("narration scene %d has no narration", sc.SceneID)
				}
			}
		}
	}
	for _, pp := range res.PlotPoints {
		if !seen[pp.SceneID] {
			return fmt.Errorf("plot point references unknown scene %d", pp.SceneID)
		}
	}
	return nil
}

// sanitizeResult is the lenient recovery pass: it drops malformed
// characters, scenes and plot points instead of failing the parse, then
// renumbers the survivors so the density invariants hold again.
func sanitizeResult(res *models.NovelParseResult) *models.NovelParseResult {
	out := &models.NovelParseResult{}

	for _, c := range res.Characters {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out.Characters = append(out.Characters, c)
	}

	for _, ch := range res.Chapters {
		kept := models.Chapter{Title: ch.Title, Summary: ch.Summary}
		for _, sc := range ch.Scenes {
			switch sc.ContentType {
			case models.ContentTypeNarration:
				// A purely visual scene may lack narration; it still needs
				// something to show.
				if strings.TrimSpace(sc.Narration) == "" && strings.TrimSpace(sc.Description) == "" {
					continue
				}
			case models.ContentTypeDialogue:
				if strings.TrimSpace(sc.Speaker) == "" || strings.TrimSpace(sc.DialogueText) == "" {
					continue
				}
			case "":
				// Untyped scenes with narrative text degrade to narration.
				if strings.TrimSpace(sc.Narration) == "" && strings.TrimSpace(sc.Description) == "" {
					continue
				}
				sc.ContentType = models.ContentTypeNarration
			default:
				continue
			}
			kept.Scenes = append(kept.Scenes, sc)
		}
		if len(kept.Scenes) > 0 {
			out.Chapters = append(out.Chapters, kept)
		}
	}

	out.PlotPoints = res.PlotPoints
	renumber(out)
	return out
}
