package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/auth"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const (
	metricOBSContainerBytes   = "nhn_obs_container_storage_bytes"
	metricOBSContainerObjects = "nhn_obs_container_object_count"
)

var obsHelp = map[string]string{
	metricOBSContainerBytes:   "Object storage container bytes used.",
	metricOBSContainerObjects: "Object storage container object count.",
}

// ObjectStorage collects container usage over the Swift API. The account
// endpoint comes from the token's service catalog, falling back to
// {endpoint}/v1/AUTH_{tenant}. With a container filter configured the
// account listing is skipped and the named containers are queried directly.
type ObjectStorage struct {
	client     *nhn.Client
	provider   *auth.Provider
	fallback   string
	containers []string
	now        func() time.Time
}

func NewObjectStorage(client *nhn.Client, provider *auth.Provider, fallback string, containers []string) *ObjectStorage {
	return &ObjectStorage{
		client:     client,
		provider:   provider,
		fallback:   fallback,
		containers: containers,
		now:        time.Now,
	}
}

func (o *ObjectStorage) Name() string { return "obs" }

func (o *ObjectStorage) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(o.Name(), o.now())

	account, err := o.accountURL(ctx)
	if err != nil {
		res.Fail(fmt.Errorf("resolve storage account: %w", err))
		return res
	}
	acct := accountLabel(account)

	names := o.containers
	if len(names) == 0 {
		var listing []nhn.Container
		if err := o.client.GetJSON(ctx, account, url.Values{"format": {"json"}}, &listing); err != nil {
			res.Fail(fmt.Errorf("list containers: %w", err))
			return res
		}
		for _, c := range listing {
			names = append(names, c.Name)
		}
	}

	for _, name := range names {
		hdr, err := o.client.Head(ctx, account+"/"+name)
		if err != nil {
			warnSkip(&res, o.Name(), "container "+name, err)
			continue
		}
		res.Add(metrics.NewSample(metricOBSContainerBytes, headerFloat(hdr, "X-Container-Bytes-Used"), res.CollectedAt).
			WithLabel("container_name", name).
			WithLabel("account", acct))
		res.Add(metrics.NewSample(metricOBSContainerObjects, headerFloat(hdr, "X-Container-Object-Count"), res.CollectedAt).
			WithLabel("container_name", name).
			WithLabel("account", acct))
		res.Succeed()
	}
	return res
}

func (o *ObjectStorage) accountURL(ctx context.Context) (string, error) {
	u, err := o.provider.StorageURL(ctx)
	if err != nil {
		return "", err
	}
	if u == "" {
		u = o.fallback
	}
	if u == "" {
		return "", fmt.Errorf("no object-store endpoint in catalog and no tenant id for the fallback URL")
	}
	return strings.TrimRight(u, "/"), nil
}

// accountLabel is the last path segment of the account URL, AUTH_{tenant}
// for catalog-issued endpoints.
func accountLabel(account string) string {
	if i := strings.LastIndex(account, "/"); i >= 0 {
		return account[i+1:]
	}
	return account
}

func headerFloat(h http.Header, key string) float64 {
	f, _ := strconv.ParseFloat(h.Get(key), 64)
	return f
}
