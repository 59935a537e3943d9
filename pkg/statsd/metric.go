package statsd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goto/salt/log"
)

type publishFunc func(name string, tags []string, rate float64) error

// Metric represents a statsd metric.
type Metric struct {
	logger        log.Logger
	name          string
	rate          float64
	tags          map[string]string
	withInfluxTag bool
	publish       publishFunc
}

// Success tags the metric as successful.
func (m *Metric) Success() *Metric {
	return m.Tag("success", "true")
}

// Failure tags the metric as failure along with the kind of error.
func (m *Metric) Failure(err error) *Metric {
	if m == nil {
		return nil
	}
	m.Tag("success", "false")
	if err != nil {
		m.Tag("error", fmt.Sprintf("%T", err))
	}
	return m
}

// Result tags the metric as a success or a failure depending on err.
func (m *Metric) Result(err error) *Metric {
	if err != nil {
		return m.Failure(err)
	}
	return m.Success()
}

// Tag adds a tag to the metric.
func (m *Metric) Tag(key string, val string) *Metric {
	if m == nil {
		return nil
	}

	if m.tags == nil {
		m.tags = map[string]string{}
	}

	m.tags[key] = val
	return m
}

// Publish publishes the metric with collected tags. Intended to
// be used with defer.
func (m *Metric) Publish() {
	if m == nil || m.publish == nil {
		return
	}

	name, tags := m.name, []string(nil)
	if m.withInfluxTag {
		name = influxName(m.name, m.tags)
	} else {
		tags = datadogTags(m.tags)
	}
	go func() {
		if err := m.publish(name, tags, m.rate); err != nil && m.logger != nil {
			m.logger.Warn("failed to publish metric", "name", name, "err", err)
		}
	}()
}

func datadogTags(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		out = append(out, k+":"+tags[k])
	}
	return out
}

func influxName(name string, tags map[string]string) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range sortedKeys(tags) {
		sb.WriteString("," + k + "=" + tags[k])
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
