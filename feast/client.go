// Package feast 把 Feast 特征平台接入偏好读取：用户画像在特征仓库离线加工、
// 物化到在线存储后，排序侧通过官方 Go SDK 以 gRPC 读取。
package feast

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
)

// OnlineClient 是在线特征读取的最小接口，*Client 是其 gRPC 实现。
type OnlineClient interface {
	OnlineFeatures(ctx context.Context, features []string, entityName string, ids []string) ([]feastsdk.Row, error)
}

// Client 包装官方 SDK 的 gRPC 客户端，固定项目名并附带超时控制。
type Client struct {
	sdk *feastsdk.GrpcClient

	// Project Feast 项目名称
	Project string
}

// NewClient 连接 Feast Feature Server。port 为 0 时使用默认 gRPC 端口 6565。
func NewClient(host string, port int, project string) (*Client, error) {
	if port == 0 {
		port = 6565
	}
	sdk, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast: connect %s:%d: %w", host, port, err)
	}
	return &Client{sdk: sdk, Project: project}, nil
}

// OnlineFeatures 按实体 ID 批量读取在线特征，返回与 ids 等长的特征行。
func (c *Client) OnlineFeatures(ctx context.Context, features []string, entityName string, ids []string) ([]feastsdk.Row, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("feast: features are required")
	}
	rows := make([]feastsdk.Row, len(ids))
	for i, id := range ids {
		rows[i] = feastsdk.Row{entityName: feastsdk.StrVal(id)}
	}
	resp, err := c.sdk.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: rows,
		Project:  c.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast: get online features: %w", err)
	}
	out := resp.Rows()
	if len(out) != len(ids) {
		return nil, fmt.Errorf("feast: response row count mismatch: expected %d, got %d", len(ids), len(out))
	}
	return out, nil
}

// Close 关闭底层 gRPC 连接。
func (c *Client) Close() error {
	return c.sdk.Close()
}
