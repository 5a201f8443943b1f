package gossiper

import (
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v2"

	"github.com/morph-dev/portal-state-network-utils/portal"
)

// Report summarizes a distribution run.
type Report struct {
	Block     uint64        `yaml:"block"`
	Total     int           `yaml:"total"`
	Published int           `yaml:"published"`
	Failed    int           `yaml:"failed"`
	Records   []ReportEntry `yaml:"records"`
}

type ReportEntry struct {
	Network    string `yaml:"network"`
	ContentKey string `yaml:"contentKey"`
	ContentID  string `yaml:"contentId"`
	Peers      int    `yaml:"peers"`
	Error      string `yaml:"error,omitempty"`
}

func NewReport(block uint64, outcomes []Outcome) *Report {
	report := &Report{Block: block, Total: len(outcomes)}
	for _, o := range outcomes {
		entry := ReportEntry{
			Network:    o.Key.Network().String(),
			ContentKey: hexutil.Encode(o.Key.Encode()),
			ContentID:  portal.ContentID(o.Key).Hex(),
			Peers:      o.Ack.Peers,
		}
		if o.Published() {
			report.Published++
		} else {
			report.Failed++
			entry.Error = o.Err.Error()
		}
		report.Records = append(report.Records, entry)
	}
	return report
}

// Save writes the report as YAML to path.
func (r *Report) Save(path string) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// ReadReport loads a report written by Save.
func ReadReport(path string) (*Report, error) {
	in, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
