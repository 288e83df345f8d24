package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

type mockItemSource struct {
	getItemFn    func(ctx context.Context, id int) (*Item, error)
	randomItemFn func(ctx context.Context) (*Item, error)
	randomCalls  int
}

func (m *mockItemSource) GetItem(ctx context.Context, id int) (*Item, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, id)
	}
	return &Item{ID: id}, nil
}

func (m *mockItemSource) RandomItem(ctx context.Context) (*Item, error) {
	m.randomCalls++
	if m.randomItemFn != nil {
		return m.randomItemFn(ctx)
	}
	return nil, ErrNotFound
}

// sequence は呼び出しごとに順にIDを返すRandomItem関数を生成する。
func sequence(ids ...int) func(ctx context.Context) (*Item, error) {
	i := 0
	return func(ctx context.Context) (*Item, error) {
		if i >= len(ids) {
			return nil, ErrNotFound
		}
		id := ids[i]
		i++
		return &Item{ID: id}, nil
	}
}

func itemIDs(items []Item) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSampler_PrefersCollectionThenFillsRandomly(t *testing.T) {
	src := &mockItemSource{randomItemFn: sequence(7, 4)}
	var buf bytes.Buffer
	s := NewSampler(src, 3, newTestLogger(&buf))

	got := itemIDs(s.Samples(context.Background(), []string{"25"}))
	if want := []int{25, 7, 4}; !equalInts(got, want) {
		t.Errorf("Samples() = %v, want %v", got, want)
	}
}

func TestSampler_SkipsDuplicatesAndBoundsAttempts(t *testing.T) {
	src := &mockItemSource{randomItemFn: func(ctx context.Context) (*Item, error) {
		return &Item{ID: 1}, nil
	}}
	var buf bytes.Buffer
	s := NewSampler(src, 3, newTestLogger(&buf))

	got := itemIDs(s.Samples(context.Background(), nil))
	if want := []int{1}; !equalInts(got, want) {
		t.Errorf("Samples() = %v, want %v", got, want)
	}
	if src.randomCalls != 6 {
		t.Errorf("RandomItem calls = %d, want 6", src.randomCalls)
	}
}

func TestSampler_SkipsNotFoundAndInvalidCollectionIDs(t *testing.T) {
	src := &mockItemSource{
		getItemFn: func(ctx context.Context, id int) (*Item, error) {
			if id == 999 {
				return nil, ErrNotFound
			}
			return &Item{ID: id}, nil
		},
	}
	var buf bytes.Buffer
	s := NewSampler(src, 3, newTestLogger(&buf))

	got := itemIDs(s.Samples(context.Background(), []string{"999", "abc", "6"}))
	if want := []int{6}; !equalInts(got, want) {
		t.Errorf("Samples() = %v, want %v", got, want)
	}
}

func TestSampler_StopsOnTransportError(t *testing.T) {
	src := &mockItemSource{
		getItemFn: func(ctx context.Context, id int) (*Item, error) {
			if id == 2 {
				return nil, errors.New("connection refused")
			}
			return &Item{ID: id}, nil
		},
		randomItemFn: func(ctx context.Context) (*Item, error) {
			return nil, errors.New("connection refused")
		},
	}
	var buf bytes.Buffer
	s := NewSampler(src, 5, newTestLogger(&buf))

	got := itemIDs(s.Samples(context.Background(), []string{"1", "2", "3"}))
	if want := []int{1}; !equalInts(got, want) {
		t.Errorf("Samples() = %v, want %v", got, want)
	}
	if src.randomCalls != 0 {
		t.Errorf("RandomItem calls = %d, want 0 after transport error", src.randomCalls)
	}
}

func TestSampler_ZeroSize_ReturnsNil(t *testing.T) {
	src := &mockItemSource{}
	var buf bytes.Buffer
	s := NewSampler(src, 0, newTestLogger(&buf))

	if got := s.Samples(context.Background(), []string{"1"}); got != nil {
		t.Errorf("Samples() = %v, want nil", got)
	}
}

func TestSampler_EmptyCatalog(t *testing.T) {
	src := &mockItemSource{}
	var buf bytes.Buffer
	s := NewSampler(src, 3, newTestLogger(&buf))

	if got := s.Samples(context.Background(), nil); len(got) != 0 {
		t.Errorf("Samples() = %v, want empty", got)
	}
	if src.randomCalls != 1 {
		t.Errorf("RandomItem calls = %d, want 1", src.randomCalls)
	}
}
