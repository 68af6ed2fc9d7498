package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprank/core"
)

const prefsKey = "prefs"

// KVPreferenceStore 把任意 KeyValueStore 适配为 core.PreferenceStore。
// 画像以 JSON 存放在哈希表中，field 为用户 ID。
type KVPreferenceStore struct {
	KV core.KeyValueStore
}

func NewKVPreferenceStore(kv core.KeyValueStore) *KVPreferenceStore {
	return &KVPreferenceStore{KV: kv}
}

var _ core.PreferenceStore = (*KVPreferenceStore)(nil)

// PutPreferences 写入/更新用户画像（画像维护属于外部协作方，此入口服务于同步与测试）。
func (s *KVPreferenceStore) PutPreferences(ctx context.Context, prefs *core.UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.KV.HSet(ctx, prefsKey, prefs.UserID, data)
}

func (s *KVPreferenceStore) GetPreferences(ctx context.Context, userID string) (*core.UserPreferences, error) {
	data, err := s.KV.HGet(ctx, prefsKey, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrPrefsNotFound
		}
		return nil, err
	}
	var prefs core.UserPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}
