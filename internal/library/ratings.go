package library

import (
	"context"
	"fmt"
)

// Ratings returns the rating of every rated prompt.
func (l *Library) Ratings(ctx context.Context) (map[string]float64, error) {
	ratings, err := readTable[map[string]float64](ctx, l, RatingsKey)
	if err != nil {
		return nil, err
	}
	if ratings == nil {
		ratings = make(map[string]float64)
	}
	return ratings, nil
}

// Rating returns the rating of a prompt, 0 when unrated.
func (l *Library) Rating(ctx context.Context, promptID string) (float64, error) {
	ratings, err := l.Ratings(ctx)
	if err != nil {
		return 0, err
	}
	return ratings[promptID], nil
}

// SetRating stores a 0..5 rating. A rating of 0 clears it.
func (l *Library) SetRating(ctx context.Context, promptID string, value float64) error {
	if value < 0 || value > 5 {
		return fmt.Errorf("%w: %v", ErrInvalidRating, value)
	}

	ratings, err := l.Ratings(ctx)
	if err != nil {
		return err
	}

	if value == 0 {
		if _, ok := ratings[promptID]; !ok {
			return nil
		}
		delete(ratings, promptID)
	} else {
		ratings[promptID] = value
	}
	return l.writeTable(ctx, RatingsKey, ratings)
}
