package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
)

// ItemSource はアイテム取得のインターフェース。テスト時にモックに差し替え可能。
type ItemSource interface {
	GetItem(ctx context.Context, id int) (*Item, error)
	RandomItem(ctx context.Context) (*Item, error)
}

// Sampler はランディングページに表示するサンプルを集める。
type Sampler struct {
	source ItemSource
	size   int
	logger *slog.Logger
}

// NewSampler はSamplerを生成する。sizeが0以下の場合はサンプルを取得しない。
func NewSampler(source ItemSource, size int, logger *slog.Logger) *Sampler {
	return &Sampler{source: source, size: size, logger: logger}
}

// Samples は最大size件の重複しないアイテムを返す。
// コレクションに含まれるIDを優先し、不足分をランダムに補う。
// 未登録のIDは読み飛ばす。通信エラーが起きた時点で打ち切り、それまでの結果を返す。
// エラーは呼び出し元に返さない。
func (s *Sampler) Samples(ctx context.Context, collectionIDs []string) []Item {
	if s.size <= 0 {
		return nil
	}

	items := make([]Item, 0, s.size)
	seen := make(map[int]struct{}, s.size)
	add := func(item *Item) {
		if _, dup := seen[item.ID]; dup {
			return
		}
		seen[item.ID] = struct{}{}
		items = append(items, *item)
	}

	for _, raw := range collectionIDs {
		if len(items) >= s.size {
			return items
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			s.logger.Warn("invalid catalog id in collection", slog.String("item_id", raw))
			continue
		}
		item, err := s.source.GetItem(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("collection item not found in catalog", slog.Int("item_id", id))
			continue
		}
		if err != nil {
			s.logger.Warn("failed to fetch catalog item", slog.Int("item_id", id), slog.String("error", err.Error()))
			return items
		}
		add(item)
	}

	// 重複を避けるため最大でsizeの2倍まで問い合わせる
	for attempt := 0; attempt < s.size*2 && len(items) < s.size; attempt++ {
		item, err := s.source.RandomItem(ctx)
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("catalog has no items")
			break
		}
		if err != nil {
			s.logger.Warn("failed to fetch catalog sample", slog.String("error", err.Error()))
			break
		}
		add(item)
	}

	return items
}
