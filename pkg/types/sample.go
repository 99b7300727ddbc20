package types

// Sample is a single labeled input in an evaluation dataset: the text to
// classify, the ground-truth accept/reject verdict it should produce, and
// (optionally) the set of labels expected to fire, as "Category.Name".
type Sample struct {
	ID              string            `json:"id"`
	Text            string            `json:"text"`
	ExpectedDecision Decision         `json:"expected_decision"`
	ExpectedLabels  []string          `json:"expected_labels,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// SampleDataset is an ordered collection of Samples plus a name used in
// reports.
type SampleDataset struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// Len returns the number of samples in the dataset.
func (d *SampleDataset) Len() int {
	return len(d.Samples)
}
