package data

import (
	"encoding/json"
	"os"

	"tariff-bench/internal/model"
)

// CommunityFile is the on-disk layout for a building community.
type CommunityFile struct {
	Horizon   int              `json:"horizon"`
	Buildings []model.Building `json:"buildings"`
}

// LoadCommunityJSON reads and validates a community definition.
func LoadCommunityJSON(path string) (*CommunityFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf CommunityFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, err
	}
	if cf.Horizon == 0 && len(cf.Buildings) > 0 {
		cf.Horizon = len(cf.Buildings[0].LoadKWh)
	}
	if err := model.ValidateCommunity(cf.Buildings, cf.Horizon); err != nil {
		return nil, err
	}
	return &cf, nil
}

// SaveCommunityJSON writes a community definition for later runs.
func SaveCommunityJSON(path string, cf *CommunityFile) error {
	raw, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
