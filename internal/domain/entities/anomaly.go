package entities

// Record is a flat detector input: field name to value
type Record map[string]interface{}

// Copy returns a shallow copy of the record
func (r Record) Copy() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AnomalyTypeUnusual is the label attached to every flagged record
const AnomalyTypeUnusual = "unusual_behavior"

// AnomalyRecord is an input record the detector flagged as an outlier
type AnomalyRecord struct {
	Index       int     `json:"index"`
	Record      Record  `json:"record"`
	AnomalyType string  `json:"anomaly_type"`
	Score       float64 `json:"score"`
}
