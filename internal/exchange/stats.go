package exchange

import (
	"math"

	"github.com/pders01/prompt-library/internal/models"
)

// ComputeStats summarizes prompts. Only ratings above zero count toward the
// average. The most used model is the one with the strictly highest count;
// ties go to the model seen first.
func ComputeStats(prompts []models.Prompt, ratings map[string]float64) Stats {
	stats := Stats{TotalPrompts: len(prompts)}

	var sum float64
	var rated int
	for _, p := range prompts {
		if r := ratings[p.ID]; r > 0 {
			sum += r
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = math.Round(sum/float64(rated)*100) / 100
	}

	counts := make(map[string]int)
	var order []string
	for _, p := range prompts {
		m := p.Model()
		if m == "" {
			continue
		}
		if _, seen := counts[m]; !seen {
			order = append(order, m)
		}
		counts[m]++
	}

	best := 0
	for _, m := range order {
		if counts[m] > best {
			best = counts[m]
			stats.MostUsedModel = &m
		}
	}
	return stats
}
