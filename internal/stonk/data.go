package stonk

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// Config is the static bootstrap record for one stonk. The engine treats
// this as an immutable external input.
type Config struct {
	Name                string  `json:"name"`
	ShortName           string  `json:"short_name"`
	Class               Class   `json:"class"`
	InitialPriceCents   int64   `json:"initial_price_cents"`
	NumberOfShares      int64   `json:"number_of_shares"`
	Drift               float64 `json:"drift"`
	Volatility          float64 `json:"volatility"`
	ShockProbability    float64 `json:"shock_probability"`
	DividendProbability float64 `json:"dividend_probability"`
}

//go:embed stonks.json
var defaultStonksData []byte

// LoadConfigs reads the static stonk configuration. An empty path loads the
// embedded default set.
func LoadConfigs(path string) ([]Config, error) {
	data := defaultStonksData
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read stonk config: %w", err)
		}
	}

	var cfgs []Config
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("parse stonk config: %w", err)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("stonk config is empty")
	}
	for i, c := range cfgs {
		if c.NumberOfShares <= 0 {
			return nil, fmt.Errorf("stonk %d (%s): number_of_shares must be positive", i, c.Name)
		}
		if c.InitialPriceCents <= 0 {
			return nil, fmt.Errorf("stonk %d (%s): initial_price_cents must be positive", i, c.Name)
		}
	}
	return cfgs, nil
}
