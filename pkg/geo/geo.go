// Package geo 提供地理位置计算工具（球面距离等），供特征抽取与 LBS 召回共用。
package geo

import "math"

// EarthRadiusKm 地球平均半径（公里）。
const EarthRadiusKm = 6371.0

// Point 是一个经纬度坐标点。
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// HaversineKm 计算两点间的大圆距离（公里），标准 haversine 公式。
func HaversineKm(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DecayScore 距离衰减分：distance=0 时为 1，随距离线性衰减，超过 maxKm 后为 0。
func DecayScore(distanceKm, maxKm float64) float64 {
	if maxKm <= 0 {
		return 0
	}
	s := 1 - distanceKm/maxKm
	if s < 0 {
		return 0
	}
	return s
}
