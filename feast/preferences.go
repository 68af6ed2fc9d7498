package feast

import (
	"context"
	"encoding/json"

	"github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/shoprank/core"
)

// 用户画像特征表的特征引用。category_weights 以 JSON 对象字符串物化，
// 其余为标量；画像离线加工的口径由特征仓库负责，这里只做读取与解码。
const (
	featureEntityName   = "user_id"
	featCategoryWeights = "user_profile:category_weights"
	featPriceMin        = "user_profile:price_min"
	featPriceMax        = "user_profile:price_max"
	featMaxDistanceKm   = "user_profile:max_distance_km"
)

var preferenceFeatures = []string{
	featCategoryWeights,
	featPriceMin,
	featPriceMax,
	featMaxDistanceKm,
}

// PreferenceStore 基于 Feast 在线特征实现 core.PreferenceStore。
type PreferenceStore struct {
	Client OnlineClient
}

var _ core.PreferenceStore = (*PreferenceStore)(nil)

// GetPreferences 读取单个用户的偏好画像。画像缺失（全部特征为空）返回 ErrPrefsNotFound。
func (s *PreferenceStore) GetPreferences(ctx context.Context, userID string) (*core.UserPreferences, error) {
	rows, err := s.Client.OnlineFeatures(ctx, preferenceFeatures, featureEntityName, []string{userID})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, err.Error())
	}
	row := rows[0]

	prefs := &core.UserPreferences{UserID: userID}
	found := false

	if raw := stringVal(row[featCategoryWeights]); raw != "" {
		weights := make(map[string]float64)
		if err := json.Unmarshal([]byte(raw), &weights); err == nil && len(weights) > 0 {
			prefs.CategoryWeights = weights
			found = true
		}
	}
	if v, ok := doubleVal(row[featPriceMin]); ok {
		prefs.PriceMin = v
		found = true
	}
	if v, ok := doubleVal(row[featPriceMax]); ok {
		prefs.PriceMax = v
		found = true
	}
	if v, ok := doubleVal(row[featMaxDistanceKm]); ok {
		prefs.MaxDistanceKm = v
		found = true
	}

	if !found {
		return nil, core.ErrPrefsNotFound
	}
	return prefs, nil
}

func stringVal(v *types.Value) string {
	if v == nil {
		return ""
	}
	return v.GetStringVal()
}

func doubleVal(v *types.Value) (float64, bool) {
	if v == nil || v.GetVal() == nil {
		return 0, false
	}
	if _, ok := v.GetVal().(*types.Value_DoubleVal); !ok {
		return 0, false
	}
	return v.GetDoubleVal(), true
}
