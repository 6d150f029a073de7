package models

// Datapoint is one timestamped, tagged measurement received from a publisher.
// Timestamps are epoch milliseconds. Datapoints are immutable once received.
type Datapoint struct {
	Timestamp int64             `json:"timestamp"`
	Tags      map[string]string `json:"tags"`
	Value     float64           `json:"value"`
}

// TagsValuePair is the evaluator's input shape: a Datapoint with the
// timestamp dropped. The batch timestamp is passed to the evaluator
// separately, after step normalization.
type TagsValuePair struct {
	Tags  map[string]string `json:"tags"`
	Value float64           `json:"value"`
}

// Pair converts the datapoint into the evaluator input shape.
func (d Datapoint) Pair() TagsValuePair {
	return TagsValuePair{Tags: d.Tags, Value: d.Value}
}

// ValidationFailure records one datapoint rejected by upstream validation,
// keyed by a stable error string.
type ValidationFailure struct {
	Error     string    `json:"error"`
	Datapoint Datapoint `json:"datapoint"`
}

// PublishRequest is one inbound batch. Values holds datapoints that passed
// validation, Failures the ones that did not. Complete is the request's
// terminal action and is invoked exactly once, on every path.
type PublishRequest struct {
	Values   []Datapoint
	Failures []ValidationFailure
	Complete func(status int, diag *Diagnostic)
}
