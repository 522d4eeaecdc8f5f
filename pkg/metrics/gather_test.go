package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// findMetric returns the series in family name whose labels include every
// pair in want.
func findMetric(mfs []*dto.MetricFamily, name string, want map[string]string) (*dto.Metric, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if hasLabels(metric.GetLabel(), want) {
			return metric, nil
		}
	}
	return nil, fmt.Errorf("metric %q has no series with labels %v", name, want)
}

func hasLabels(labels []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, label := range labels {
		if v, ok := want[label.GetName()]; ok && v == label.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findMetric(mfs, name, map[string]string{label: value})
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findMetric(mfs, name, map[string]string{label: value})
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}
