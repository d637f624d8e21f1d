// Package export renders cached collection results into the Prometheus
// text exposition format. Rendering is a pure function of the cache
// contents: it never triggers a collection and produces byte-identical
// output for an unchanged cache.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/cache"
)

// ContentType is the MIME type served with the rendered exposition.
func ContentType() string {
	return string(expfmt.NewFormat(expfmt.TypeTextPlain))
}

// Render serializes the samples of all cached entries into exposition text.
// Samples are grouped into metric families by name, families are emitted in
// lexical name order, and label pairs within a sample are emitted in lexical
// key order, so repeated renders of the same cache are byte-identical.
// help supplies the # HELP line per family name; an empty string omits it.
func Render(entries []cache.Entry, help func(name string) string) ([]byte, error) {
	families := make(map[string]*dto.MetricFamily)
	names := make([]string, 0, 16)

	for _, e := range entries {
		for _, s := range e.Result.Samples {
			mf, ok := families[s.Name]
			if !ok {
				mf = &dto.MetricFamily{
					Name: proto.String(s.Name),
					Type: familyType(s.Name).Enum(),
				}
				if help != nil {
					if h := help(s.Name); h != "" {
						mf.Help = proto.String(h)
					}
				}
				families[s.Name] = mf
				names = append(names, s.Name)
			}
			mf.Metric = append(mf.Metric, toMetric(s.Labels, s.Value, mf.GetType()))
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		if _, err := expfmt.MetricFamilyToText(&buf, families[name]); err != nil {
			return nil, fmt.Errorf("export: render family %s: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// familyType picks the exposition type for a family name. Everything in
// this domain is a gauge except request totals, which follow the _total
// naming convention for counters.
func familyType(name string) dto.MetricType {
	if strings.HasSuffix(name, "_total") {
		return dto.MetricType_COUNTER
	}
	return dto.MetricType_GAUGE
}

func toMetric(labels map[string]string, value float64, typ dto.MetricType) *dto.Metric {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]*dto.LabelPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, &dto.LabelPair{
			Name:  proto.String(k),
			Value: proto.String(labels[k]),
		})
	}

	m := &dto.Metric{Label: pairs}
	if typ == dto.MetricType_COUNTER {
		m.Counter = &dto.Counter{Value: proto.Float64(value)}
	} else {
		m.Gauge = &dto.Gauge{Value: proto.Float64(value)}
	}
	return m
}
