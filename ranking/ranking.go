// Package ranking turns leaderboard entries and their scores into grouped,
// ranked score tables.
package ranking

import (
	"math"
	"sort"
	"strconv"

	"github.com/Dosada05/competition-system/models"
)

type Column struct {
	Key           string              `json:"key"`
	Label         string              `json:"label"`
	Sorting       models.ScoreSorting `json:"sorting"`
	NumericFormat int                 `json:"numeric_format"`
}

// Cell is one score of one row. Rank is 0 when the row has no value.
type Cell struct {
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
	Rank    int      `json:"rank"`
}

type Row struct {
	models.LeaderBoardRow
	Rank        int             `json:"rank"`
	AverageRank *float64        `json:"average_rank"`
	Scores      map[string]Cell `json:"scores"`
}

type Group struct {
	ID      int      `json:"id"`
	Label   string   `json:"label"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Build ranks rows within every group. Each column is ranked independently
// using competition ranking (equal values share a rank, the next rank skips).
// Rows are ordered by the mean of their column ranks; rows without any score
// come last, unranked.
func Build(groups []models.ScoreGroup, defs []models.ScoreDef, rows []models.LeaderBoardRow, scores []models.SubmissionScore) []Group {
	bySubmission := make(map[int]map[int]float64)
	for _, s := range scores {
		if bySubmission[s.SubmissionID] == nil {
			bySubmission[s.SubmissionID] = make(map[int]float64)
		}
		bySubmission[s.SubmissionID][s.ScoreDefID] = s.Value
	}

	defsByGroup := make(map[int][]models.ScoreDef)
	for _, d := range defs {
		defsByGroup[d.GroupID] = append(defsByGroup[d.GroupID], d)
	}

	sortedGroups := append([]models.ScoreGroup(nil), groups...)
	sort.SliceStable(sortedGroups, func(i, j int) bool {
		if sortedGroups[i].Ordering != sortedGroups[j].Ordering {
			return sortedGroups[i].Ordering < sortedGroups[j].Ordering
		}
		return sortedGroups[i].ID < sortedGroups[j].ID
	})

	result := make([]Group, 0, len(sortedGroups))
	for _, g := range sortedGroups {
		groupDefs := append([]models.ScoreDef(nil), defsByGroup[g.ID]...)
		sort.SliceStable(groupDefs, func(i, j int) bool {
			if groupDefs[i].Ordering != groupDefs[j].Ordering {
				return groupDefs[i].Ordering < groupDefs[j].Ordering
			}
			return groupDefs[i].ID < groupDefs[j].ID
		})
		result = append(result, buildGroup(g, groupDefs, rows, bySubmission))
	}
	return result
}

func buildGroup(g models.ScoreGroup, defs []models.ScoreDef, rows []models.LeaderBoardRow, values map[int]map[int]float64) Group {
	out := Group{
		ID:      g.ID,
		Label:   g.Label,
		Columns: make([]Column, len(defs)),
		Rows:    make([]Row, len(rows)),
	}
	for i, d := range defs {
		out.Columns[i] = Column{Key: d.Key, Label: d.Label, Sorting: d.Sorting, NumericFormat: d.NumericFormat}
	}
	for i, r := range rows {
		out.Rows[i] = Row{LeaderBoardRow: r, Scores: make(map[string]Cell, len(defs))}
	}

	for _, d := range defs {
		cells := make([]*Cell, len(rows))
		for i, r := range rows {
			cell := Cell{}
			if v, ok := values[r.SubmissionID][d.ID]; ok {
				rounded := round(v, d.NumericFormat)
				cell.Value = &rounded
				cell.Display = strconv.FormatFloat(v, 'f', d.NumericFormat, 64)
			}
			cells[i] = &cell
		}
		rankColumn(cells, d.Sorting)
		for i := range rows {
			out.Rows[i].Scores[d.Key] = *cells[i]
		}
	}

	for i := range out.Rows {
		sum, n := 0.0, 0
		for _, d := range defs {
			if c := out.Rows[i].Scores[d.Key]; c.Rank > 0 {
				sum += float64(c.Rank)
				n++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			out.Rows[i].AverageRank = &avg
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i].AverageRank, out.Rows[j].AverageRank
		switch {
		case a == nil && b == nil:
			return out.Rows[i].EntryID < out.Rows[j].EntryID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		}
		return out.Rows[i].EntryID < out.Rows[j].EntryID
	})

	for i := range out.Rows {
		switch {
		case out.Rows[i].AverageRank == nil:
			out.Rows[i].Rank = 0
		case i > 0 && out.Rows[i-1].AverageRank != nil && *out.Rows[i-1].AverageRank == *out.Rows[i].AverageRank:
			out.Rows[i].Rank = out.Rows[i-1].Rank
		default:
			out.Rows[i].Rank = i + 1
		}
	}
	return out
}

// rankColumn assigns competition ranks to cells that hold a value.
func rankColumn(cells []*Cell, sorting models.ScoreSorting) {
	ranked := make([]*Cell, 0, len(cells))
	for _, c := range cells {
		if c.Value != nil {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if sorting == models.SortAscending {
			return *ranked[i].Value < *ranked[j].Value
		}
		return *ranked[i].Value > *ranked[j].Value
	})
	for i, c := range ranked {
		if i > 0 && *ranked[i-1].Value == *c.Value {
			c.Rank = ranked[i-1].Rank
			continue
		}
		c.Rank = i + 1
	}
}

func round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
