package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pkg/geo"
)

// 目录数据在 KV 中的哈希表 key。
const (
	catalogShopsKey  = "catalog:shops"
	catalogOffersKey = "catalog:offers"
)

// KVCatalogStore 把任意 KeyValueStore 适配为 core.CandidateStore：
// 店铺/优惠以 JSON 存放在哈希表中，查询时在进程内过滤。
// 候选实体的 CRUD 属于外部协作方，这里的写入口（PutShop/PutOffer）
// 服务于数据同步与测试。
type KVCatalogStore struct {
	KV core.KeyValueStore
}

func NewKVCatalogStore(kv core.KeyValueStore) *KVCatalogStore {
	return &KVCatalogStore{KV: kv}
}

var _ core.CandidateStore = (*KVCatalogStore)(nil)

// PutShop 写入/更新一家店铺。
func (s *KVCatalogStore) PutShop(ctx context.Context, shop *core.Shop) error {
	data, err := json.Marshal(shop)
	if err != nil {
		return err
	}
	return s.KV.HSet(ctx, catalogShopsKey, shop.ID, data)
}

// PutOffer 写入/更新一条优惠。
func (s *KVCatalogStore) PutOffer(ctx context.Context, offer *core.Offer) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return s.KV.HSet(ctx, catalogOffersKey, offer.ID, data)
}

func (s *KVCatalogStore) GetShop(ctx context.Context, id string) (*core.Shop, error) {
	data, err := s.KV.HGet(ctx, catalogShopsKey, id)
	if err != nil {
		return nil, err
	}
	var shop core.Shop
	if err := json.Unmarshal(data, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}

func (s *KVCatalogStore) GetOffer(ctx context.Context, id string) (*core.Offer, error) {
	data, err := s.KV.HGet(ctx, catalogOffersKey, id)
	if err != nil {
		return nil, err
	}
	var offer core.Offer
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *KVCatalogStore) QueryShops(ctx context.Context, q core.CandidateQuery) ([]*core.Shop, error) {
	fields, err := s.KV.HGetAll(ctx, catalogShopsKey)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Shop, 0, len(fields))
	for _, data := range fields {
		var shop core.Shop
		if err := json.Unmarshal(data, &shop); err != nil {
			continue
		}
		if !matchShop(&shop, q) {
			continue
		}
		out = append(out, &shop)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *KVCatalogStore) QueryOffers(ctx context.Context, q core.CandidateQuery) ([]*core.Offer, error) {
	fields, err := s.KV.HGetAll(ctx, catalogOffersKey)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Offer, 0, len(fields))
	for _, data := range fields {
		var offer core.Offer
		if err := json.Unmarshal(data, &offer); err != nil {
			continue
		}
		if q.Category != "" && offer.Category != q.Category {
			continue
		}
		if q.OnlyActive && !offer.Active {
			continue
		}
		out = append(out, &offer)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func matchShop(shop *core.Shop, q core.CandidateQuery) bool {
	if q.Category != "" && shop.Category != q.Category {
		return false
	}
	if q.OnlyActive && !shop.Active {
		return false
	}
	if q.OnlyVerified && !shop.Verified {
		return false
	}
	if q.Near != nil && q.MaxDistanceKm > 0 {
		if geo.HaversineKm(*q.Near, shop.Location) > q.MaxDistanceKm {
			return false
		}
	}
	return true
}
