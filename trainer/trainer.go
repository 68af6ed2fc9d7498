package trainer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/model"
)

// Trainer 是后台模型训练器：周期性读取行为事件窗口，做 k-means 行为聚类，
// 并为每个簇训练一个 boosting 排序模型，最后把完整的新模型集合原子替换给在线打分。
// 训练任何一步失败都不替换，线上继续使用旧模型。
type Trainer struct {
	// Interactions 行为事件来源
	Interactions core.InteractionStore
	// Candidates 实体目录，用于重建历史交互实体的特征
	Candidates core.CandidateStore
	// Prefs 用户偏好来源，重建特征时按需读取；缺失不视为错误
	Prefs core.PreferenceStore
	// Extractor 特征抽取器，与在线打分共用同一套特征口径
	Extractor *feature.Extractor
	// Config 训练参数
	Config core.TrainerConfig

	// Seed 非零时固定随机种子，测试用
	Seed int64

	current atomic.Pointer[model.Set]
	group   singleflight.Group

	mu          sync.Mutex
	lastTrained time.Time
	lastErr     error
	stop        chan struct{}
	stopOnce    sync.Once
}

// New 创建训练器。cfg 的零值字段回落到 DefaultConfig 的对应值。
func New(interactions core.InteractionStore, candidates core.CandidateStore, prefs core.PreferenceStore, extractor *feature.Extractor, cfg core.TrainerConfig) *Trainer {
	def := core.DefaultConfig().Trainer
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.ClusterK <= 0 {
		cfg.ClusterK = def.ClusterK
	}
	if cfg.KMeansIterations <= 0 {
		cfg.KMeansIterations = def.KMeansIterations
	}
	if cfg.MinEvents <= 0 {
		cfg.MinEvents = def.MinEvents
	}
	if cfg.MinClusterExamples <= 0 {
		cfg.MinClusterExamples = def.MinClusterExamples
	}
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if extractor == nil {
		extractor = &feature.Extractor{Interactions: interactions}
	}
	t := &Trainer{
		Interactions: interactions,
		Candidates:   candidates,
		Prefs:        prefs,
		Extractor:    extractor,
		Config:       cfg,
		stop:         make(chan struct{}),
	}
	t.current.Store(&model.Set{})
	return t
}

// Models 返回当前生效的模型集合，实现 rank.ModelProvider。
// 返回值是完整的一次训练产物，读取方不会看到半新半旧的状态。
func (t *Trainer) Models() *model.Set {
	return t.current.Load()
}

// Status 描述训练器当前状态。
type Status struct {
	ClusterCount  int       `json:"cluster_count"`
	RankerCount   int       `json:"ranker_count"`
	LastTrainedAt time.Time `json:"last_trained_at"`
	NextTrainAt   time.Time `json:"next_train_at"`
	LastError     string    `json:"last_error,omitempty"`
}

// Status 返回模型与调度状态。
func (t *Trainer) Status() Status {
	set := t.current.Load()
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{
		LastTrainedAt: t.lastTrained,
	}
	if set != nil {
		st.ClusterCount = len(set.Clusters)
		st.RankerCount = len(set.Rankers)
	}
	if !t.lastTrained.IsZero() {
		st.NextTrainAt = t.lastTrained.Add(t.Config.Interval)
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}

// Train 执行一轮训练。并发调用共享同一轮执行结果（singleflight），
// 训练失败时保持旧模型不变并返回错误。
func (t *Trainer) Train(ctx context.Context) error {
	_, err, _ := t.group.Do("train", func() (any, error) {
		set, err := t.trainOnce(ctx, time.Now())
		t.mu.Lock()
		t.lastErr = err
		if err == nil {
			t.lastTrained = set.TrainedAt
		}
		t.mu.Unlock()
		if err != nil {
			return nil, err
		}
		t.current.Store(set)
		t.pruneWindow(ctx, set.TrainedAt)
		return set, nil
	})
	return err
}

// pruneWindow 在训练成功后裁剪滚动窗口之外的事件，尽力而为，失败不影响训练结果。
func (t *Trainer) pruneWindow(ctx context.Context, now time.Time) {
	type pruner interface {
		Prune(ctx context.Context, before time.Time) (int64, error)
	}
	p, ok := t.Interactions.(pruner)
	if !ok {
		return
	}
	before := now.AddDate(0, 0, -t.Config.WindowDays)
	_, _ = p.Prune(ctx, before)
}

// Start 启动后台训练循环：先立即训练一轮，之后按 Interval 周期执行。
// 单轮失败只记录到状态里，不中断循环。ctx 取消或 Stop 被调用时退出。
func (t *Trainer) Start(ctx context.Context) {
	go func() {
		_ = t.Train(ctx)
		ticker := time.NewTicker(t.Config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			case <-ticker.C:
				_ = t.Train(ctx)
			}
		}
	}()
}

// Stop 停止后台训练循环。
func (t *Trainer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// trainOnce 完成一轮训练并返回新模型集合，过程中不触碰 current。
func (t *Trainer) trainOnce(ctx context.Context, now time.Time) (*model.Set, error) {
	since := now.AddDate(0, 0, -t.Config.WindowDays)
	events, err := t.Interactions.Query(ctx, core.EventQuery{Since: since})
	if err != nil {
		return nil, err
	}
	if len(events) < t.Config.MinEvents {
		return nil, core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInsufficientData,
			fmt.Sprintf("trainer: %d events in window, need %d", len(events), t.Config.MinEvents))
	}

	// 按用户聚合行为并构建行为向量；用户顺序排序保证训练可复现
	byUser := make(map[string][]*core.InteractionEvent)
	for _, ev := range events {
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}
	users := make([]string, 0, len(byUser))
	for uid := range byUser {
		users = append(users, uid)
	}
	sort.Strings(users)

	vectors := make([][]float64, len(users))
	for i, uid := range users {
		vectors[i] = feature.BehaviorVector(byUser[uid])
	}

	seed := t.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	centroids, assignments := model.KMeans(vectors, t.Config.ClusterK, t.Config.KMeansIterations, rng)

	clusters := make(map[int]*model.ClusterModel, len(centroids))
	for id, c := range centroids {
		clusters[id] = &model.ClusterModel{ID: id, Centroid: c, TrainedAt: now}
	}
	userCluster := make(map[string]int, len(users))
	for i, uid := range users {
		userCluster[uid] = assignments[i]
		clusters[assignments[i]].Members++
	}

	// 按簇重建训练样本：特征向量走与在线打分相同的抽取口径，标签来自行为类型
	samples, err := t.buildSamples(ctx, events, userCluster, now)
	if err != nil {
		return nil, err
	}

	rankers := make(map[int]*model.StumpEnsemble)
	for id, s := range samples {
		if len(s.labels) < t.Config.MinClusterExamples {
			continue
		}
		rankers[id] = model.FitEnsemble(s.examples, s.labels, t.Config.Trees, t.Config.LearningRate)
	}

	return &model.Set{
		TrainedAt: now,
		Clusters:  clusters,
		Rankers:   rankers,
	}, nil
}

type clusterSamples struct {
	examples [][]float64
	labels   []float64
}

// buildSamples 把事件窗口转换为逐簇的 (特征向量, 相关性标签) 样本。
// 已下架或找不到的实体跳过；偏好缺失按无偏好处理。
func (t *Trainer) buildSamples(ctx context.Context, events []*core.InteractionEvent, userCluster map[string]int, now time.Time) (map[int]*clusterSamples, error) {
	prefsCache := make(map[string]*core.UserPreferences)
	samples := make(map[int]*clusterSamples)

	for _, ev := range events {
		cluster, ok := userCluster[ev.UserID]
		if !ok {
			continue
		}
		it, err := t.resolveTarget(ctx, ev.Target)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		prefs, cached := prefsCache[ev.UserID]
		if !cached {
			if t.Prefs != nil {
				p, err := t.Prefs.GetPreferences(ctx, ev.UserID)
				if err != nil && !core.IsNotFound(err) {
					return nil, err
				}
				prefs = p
			}
			prefsCache[ev.UserID] = prefs
		}

		rctx := &core.RankContext{
			UserID:     ev.UserID,
			EntityType: ev.Target.Type,
			Location:   ev.Location,
			Prefs:      prefs,
		}
		features, err := t.Extractor.ExtractOne(ctx, rctx, it, now)
		if err != nil {
			return nil, err
		}

		s := samples[cluster]
		if s == nil {
			s = &clusterSamples{}
			samples[cluster] = s
		}
		s.examples = append(s.examples, feature.Flatten(features))
		s.labels = append(s.labels, core.RelevanceLabel(ev.Action))
	}
	return samples, nil
}

// resolveTarget 按事件目标重建候选 Item，优惠同时带上所属店铺。
func (t *Trainer) resolveTarget(ctx context.Context, ref core.EntityRef) (*core.Item, error) {
	if ref.ID == "" {
		return nil, core.ErrStoreNotFound
	}
	it := core.NewItem(ref)
	switch ref.Type {
	case core.EntityShop:
		shop, err := t.Candidates.GetShop(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		it.Meta["shop"] = shop
	case core.EntityOffer:
		offer, err := t.Candidates.GetOffer(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		it.Meta["offer"] = offer
		if shop, err := t.Candidates.GetShop(ctx, offer.ShopID); err == nil {
			it.Meta["shop"] = shop
		}
	default:
		return nil, core.ErrStoreNotFound
	}
	return it, nil
}
