package dataprocessing

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldreport/pkg/contracts/domain"
)

// Groupable is implemented by observations that belong to a mission visit
type Groupable interface {
	MissionVisit() domain.Visit
}

// ArticleKeyed is implemented by observations that name a surveyed article
type ArticleKeyed interface {
	ArticleName() string
}

// DateFormatter renders the short date used in group keys
type DateFormatter interface {
	ShortDate(t time.Time) string
}

// GroupKey identifies a date-client group. Fields are compared positionally,
// so a client named like another group's address never collides with it.
type GroupKey struct {
	Date    string
	Client  string
	Address string
}

// String renders the key as a display label
func (k GroupKey) String() string {
	return k.Date + " | " + k.Client + " | " + k.Address
}

// Group is an ordered set of records sharing a key.
// FirstIndex is the input position of the first record of the group.
type Group[K comparable, T any] struct {
	Key        K
	Records    []T
	FirstIndex int
}

// VisitKey builds the date-client key of a record under the given formatter
func VisitKey(v domain.Visit, dates DateFormatter) GroupKey {
	return GroupKey{
		Date:    dates.ShortDate(v.MissionDate),
		Client:  v.RaisonSocial,
		Address: v.Adresse,
	}
}

// GroupByDateClient partitions records by (short mission date, client, address).
// Groups are returned in first-appearance order and records keep input order.
// The input slice is not modified.
func GroupByDateClient[T Groupable](records []T, dates DateFormatter) []Group[GroupKey, T] {
	return groupBy(records, 0, func(r T) GroupKey {
		return VisitKey(r.MissionVisit(), dates)
	})
}

// GroupByArticle partitions records by article name with the same ordering
// guarantees as GroupByDateClient.
func GroupByArticle[T ArticleKeyed](records []T) []Group[string, T] {
	return groupBy(records, 0, func(r T) string {
		return r.ArticleName()
	})
}

// GroupByDateClientConcurrent groups records in parallel chunks and merges the
// partial results by key. The outcome is identical to GroupByDateClient: a
// merged group is placed by the earliest input index across all chunks.
func GroupByDateClientConcurrent[T Groupable](ctx context.Context, records []T, dates DateFormatter, chunks int) ([]Group[GroupKey, T], error) {
	if chunks <= 1 || len(records) < 2*chunks {
		return GroupByDateClient(records, dates), nil
	}

	keyOf := func(r T) GroupKey {
		return VisitKey(r.MissionVisit(), dates)
	}

	size := (len(records) + chunks - 1) / chunks
	count := (len(records) + size - 1) / size
	partials := make([][]Group[GroupKey, T], count)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		start := i * size
		end := min(start+size, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = groupBy(records[start:end], start, keyOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeGroups(partials), nil
}

// groupBy is the single-pass stable partition shared by all groupings.
// offset is added to record positions so chunked callers keep input indices.
func groupBy[K comparable, T any](records []T, offset int, keyOf func(T) K) []Group[K, T] {
	groups := make([]Group[K, T], 0)
	index := make(map[K]int)

	for i, record := range records {
		key := keyOf(record)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group[K, T]{Key: key, FirstIndex: offset + i})
		}
		groups[pos].Records = append(groups[pos].Records, record)
	}

	return groups
}

// mergeGroups folds chunk results in chunk order, then orders groups by their
// earliest input index.
func mergeGroups[K comparable, T any](partials [][]Group[K, T]) []Group[K, T] {
	merged := make([]Group[K, T], 0)
	index := make(map[K]int)

	for _, part := range partials {
		for _, g := range part {
			pos, ok := index[g.Key]
			if !ok {
				index[g.Key] = len(merged)
				merged = append(merged, Group[K, T]{
					Key:        g.Key,
					Records:    append([]T(nil), g.Records...),
					FirstIndex: g.FirstIndex,
				})
				continue
			}
			merged[pos].Records = append(merged[pos].Records, g.Records...)
			if g.FirstIndex < merged[pos].FirstIndex {
				merged[pos].FirstIndex = g.FirstIndex
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FirstIndex < merged[j].FirstIndex
	})
	return merged
}
