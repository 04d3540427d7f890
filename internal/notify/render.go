package notify

import (
	"fmt"
	"strings"

	"github.com/Alias1177/InsiderScan/models"
)

var directionIcons = map[models.Direction]string{
	models.DirectionBull:  "🟢",
	models.DirectionBear:  "🔴",
	models.DirectionMixed: "⚪",
}

// Render formats records as a Markdown alert, high-volume names first.
// Scores are rounded here only.
func Render(records []models.AnomalyRecord) string {
	if len(records) == 0 {
		return ""
	}

	var high, low []models.AnomalyRecord
	for _, r := range records {
		if r.VolumeTier == models.VolumeTierHigh {
			high = append(high, r)
		} else {
			low = append(low, r)
		}
	}
	SortByScore(high)
	SortByScore(low)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🚨 *Unusual options activity* | %s\n", records[0].EventDate.Format("2006-01-02"))
	writeSection(&sb, "High volume", high)
	writeSection(&sb, "Low volume", low)
	return strings.TrimRight(sb.String(), "\n")
}

func writeSection(sb *strings.Builder, title string, records []models.AnomalyRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n*%s*\n", title)
	for _, r := range records {
		icon, ok := directionIcons[r.Direction]
		if !ok {
			icon = directionIcons[models.DirectionMixed]
		}
		fmt.Fprintf(sb, "%s *%s* %.1f/10 | C %d / P %d\n_%s_\n",
			icon, r.Symbol, r.TotalScore, r.CallVolume, r.PutVolume, r.PatternDescription)
	}
}

// chunk splits text at line boundaries into pieces no longer than limit
func chunk(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len()+len(line) > limit && cur.Len() > 0 {
			out = append(out, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
		}
		for len(line) > limit {
			out = append(out, line[:limit])
			line = line[limit:]
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, strings.TrimRight(cur.String(), "\n"))
	}
	return out
}
