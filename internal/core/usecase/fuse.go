package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

const defaultEvidenceCap = 10

// FuseEvidence merges the retrieval results for one question into a single
// deduplicated, ranked evidence bundle. It is a pure transformation and its
// output is deterministic regardless of result arrival order: inputs are
// re-sorted by sub-query id and nothing depends on map iteration order.
//
// Ranking policy: SQL rows first (ground truth from the relational store),
// then vector passages by descending similarity with title tiebreak, capped
// at maxItems total.
func FuseEvidence(
	sqlResults []domain.SQLResult,
	vectorResults []domain.VectorResult,
	degradations []domain.Degradation,
	maxItems int,
) domain.EvidenceBundle {
	if maxItems <= 0 {
		maxItems = defaultEvidenceCap
	}

	sqlOrdered := make([]domain.SQLResult, len(sqlResults))
	copy(sqlOrdered, sqlResults)
	sort.SliceStable(sqlOrdered, func(i, j int) bool {
		return sqlOrdered[i].SubQueryID < sqlOrdered[j].SubQueryID
	})

	vecOrdered := make([]domain.VectorResult, len(vectorResults))
	copy(vecOrdered, vectorResults)
	sort.SliceStable(vecOrdered, func(i, j int) bool {
		return vecOrdered[i].SubQueryID < vecOrdered[j].SubQueryID
	})

	seen := make(map[string]int)
	var items []domain.EvidenceItem

	for _, res := range sqlOrdered {
		for _, row := range res.Rows {
			item := domain.EvidenceItem{
				Backend:    domain.BackendSQL,
				SubQueryID: res.SubQueryID,
				Key:        sqlProvenanceKey(res, row),
				Title:      res.Template,
				Content:    row.Render(),
				Score:      1.0,
			}
			// First-seen wins for SQL rows; identical keys carry identical facts.
			if _, dup := seen[dedupKey(item)]; dup {
				continue
			}
			seen[dedupKey(item)] = len(items)
			items = append(items, item)
		}
	}

	var vectorItems []domain.EvidenceItem
	vectorSeen := make(map[string]int)
	for _, res := range vecOrdered {
		for _, passage := range res.Passages {
			item := domain.EvidenceItem{
				Backend:    domain.BackendVector,
				SubQueryID: res.SubQueryID,
				Key:        passage.Title + "|" + passage.Category,
				Title:      passage.Title,
				Content:    passage.Content,
				Score:      passage.Score,
			}
			if idx, dup := vectorSeen[item.Key]; dup {
				if item.Score > vectorItems[idx].Score {
					vectorItems[idx] = item
				}
				continue
			}
			vectorSeen[item.Key] = len(vectorItems)
			vectorItems = append(vectorItems, item)
		}
	}
	sort.SliceStable(vectorItems, func(i, j int) bool {
		if vectorItems[i].Score != vectorItems[j].Score {
			return vectorItems[i].Score > vectorItems[j].Score
		}
		return vectorItems[i].Title < vectorItems[j].Title
	})

	items = append(items, vectorItems...)
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	sqlCount, vectorCount := 0, 0
	for i := range items {
		items[i].Rank = i + 1
		if items[i].Backend == domain.BackendSQL {
			sqlCount++
			items[i].ID = fmt.Sprintf("S%d", sqlCount)
		} else {
			vectorCount++
			items[i].ID = fmt.Sprintf("V%d", vectorCount)
		}
	}

	notes := make([]domain.Degradation, len(degradations))
	copy(notes, degradations)
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Backend != notes[j].Backend {
			return notes[i].Backend < notes[j].Backend
		}
		return notes[i].SubQueryID < notes[j].SubQueryID
	})

	return domain.EvidenceBundle{
		Items:        items,
		Degradations: notes,
	}
}

// sqlProvenanceKey identifies a row by its template and key column value so
// the same fact retrieved twice collapses to one evidence item.
func sqlProvenanceKey(res domain.SQLResult, row domain.Row) string {
	if v, ok := row.Get(res.KeyColumn); ok {
		return fmt.Sprintf("%s:%v", res.Template, v)
	}
	return res.Template + ":" + row.Render()
}

func dedupKey(item domain.EvidenceItem) string {
	return string(item.Backend) + "|" + item.Key
}
