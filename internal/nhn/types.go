package nhn

import (
	"fmt"
	"strconv"
	"strings"
)

// Healthy status values reported by the service APIs.
const (
	StatusOnline    = "ONLINE"
	StatusActive    = "ACTIVE"
	StatusAvailable = "available"
)

// Wire types for the endpoints the collectors poll. Field sets are trimmed to
// what the metrics need; unknown response fields are ignored on decode.

// DNS Plus / GSLB.

type GSLBListResponse struct {
	GSLBs []GSLB `json:"gslbs"`
}

type GSLB struct {
	ID              string `json:"gslbId"`
	Name            string `json:"gslbName"`
	OperatingStatus string `json:"operatingStatus"`
}

type GSLBPoolListResponse struct {
	Pools []GSLBPool `json:"pools"`
}

type GSLBPool struct {
	ID              string       `json:"poolId"`
	Name            string       `json:"poolName"`
	OperatingStatus string       `json:"operatingStatus"`
	Members         []GSLBMember `json:"members"`
}

type GSLBMember struct {
	ID              string `json:"memberId"`
	Name            string `json:"memberName"`
	OperatingStatus string `json:"operatingStatus"`
}

type HealthCheckListResponse struct {
	HealthChecks []HealthCheck `json:"healthChecks"`
}

type HealthCheck struct {
	ID   string `json:"healthCheckId"`
	Name string `json:"healthCheckName"`
}

// Load balancer (LBaaS v2).

type LoadBalancerListResponse struct {
	LoadBalancers []LoadBalancer `json:"loadbalancers"`
}

type LoadBalancerResponse struct {
	LoadBalancer LoadBalancer `json:"loadbalancer"`
}

type LoadBalancer struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	OperatingStatus    string `json:"operating_status"`
	ProvisioningStatus string `json:"provisioning_status"`
	VIPAddress         string `json:"vip_address"`
}

type ListenerListResponse struct {
	Listeners []Listener `json:"listeners"`
}

type Listener struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Protocol        string `json:"protocol"`
	ProtocolPort    int    `json:"protocol_port"`
	OperatingStatus string `json:"operating_status"`
}

type PoolListResponse struct {
	Pools []Pool `json:"pools"`
}

type Pool struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Protocol        string `json:"protocol"`
	OperatingStatus string `json:"operating_status"`
}

type MemberListResponse struct {
	Members []Member `json:"members"`
}

type Member struct {
	ID            string `json:"id"`
	Address       string `json:"address"`
	ProtocolPort  int    `json:"protocol_port"`
	MonitorStatus string `json:"monitor_status"`
}

// RDS for MySQL.

type DBInstanceListResponse struct {
	DBInstances []DBInstance `json:"dbInstances"`
}

type DBInstance struct {
	ID     string `json:"dbInstanceId"`
	Name   string `json:"dbInstanceName"`
	Engine string `json:"dbEngine"`
	Status string `json:"dbInstanceStatus"`
}

type MetricStatisticsResponse struct {
	MetricStatistics []MetricStatistic `json:"metricStatistics"`
}

type MetricStatistic struct {
	MetricName string      `json:"metricName"`
	Value      MetricValue `json:"value"`
}

// MetricValue decodes statistic values that the API returns either as JSON
// numbers or as quoted strings. null decodes to zero.
type MetricValue float64

func (v *MetricValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse metric value %s: %w", string(b), err)
	}
	*v = MetricValue(f)
	return nil
}

// CDN.

type CDNServiceListResponse struct {
	Services []CDNService `json:"services"`
}

// CDNService carries both field spellings seen across CDN API versions; use
// Ident and Title instead of reading the fields directly.
type CDNService struct {
	ServiceID   string `json:"serviceId"`
	AltID       string `json:"id"`
	ServiceName string `json:"serviceName"`
	AltName     string `json:"name"`
	Domain      string `json:"domain"`
	Status      string `json:"status"`
	AppKey      string `json:"appKey"`
}

// Ident returns the first non-empty identifier for the service.
func (s CDNService) Ident() string {
	for _, v := range []string{s.ServiceID, s.AltID, s.AppKey} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Title returns the first non-empty display name for the service.
func (s CDNService) Title() string {
	if s.ServiceName != "" {
		return s.ServiceName
	}
	return s.AltName
}

type CDNStatisticsResponse struct {
	Statistics []CDNStatistic `json:"statistics"`
}

type CDNStatistic struct {
	CacheHits    float64 `json:"cacheHits"`
	CacheMisses  float64 `json:"cacheMisses"`
	BandwidthIn  float64 `json:"bandwidthIn"`
	BandwidthOut float64 `json:"bandwidthOut"`
}

// Object storage (Swift API). An account listing with ?format=json returns a
// top-level array of these.
type Container struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Compute.

type ServerListResponse struct {
	Servers []Server `json:"servers"`
}

type Server struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Flavor struct {
		ID string `json:"id"`
	} `json:"flavor"`
}
