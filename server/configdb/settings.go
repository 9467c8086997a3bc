package configdb

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

type Variable struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `json:"value"`
}

// VariableKey names the persisted settings blobs.
type VariableKey string

const (
	VarInferenceSettings  VariableKey = "InferenceSettings"
	VarVisibilitySettings VariableKey = "VisibilitySettings"
	VarLastModelHash      VariableKey = "LastModelHash"
)

// InferenceSettings are the user-tunable inference options.
type InferenceSettings struct {
	IOU           float32 `json:"iou"`
	FrameInterval int     `json:"frameInterval"`
	BulkFilter    string  `json:"bulkFilter"` // image | video | both
}

func DefaultInferenceSettings() InferenceSettings {
	return InferenceSettings{
		IOU:           0.8,
		FrameInterval: 1,
		BulkFilter:    "both",
	}
}

// VisibilitySettings are the persisted defaults for the visibility pipeline.
// The hidden set and selection are session state and are not persisted.
type VisibilitySettings struct {
	ConfidenceThreshold float32 `json:"confidenceThreshold"`
	Opacity             float32 `json:"opacity"`
	Outline             bool    `json:"outline"`
	AlwaysShowLabel     bool    `json:"alwaysShowLabel"`
}

func DefaultVisibilitySettings() VisibilitySettings {
	return VisibilitySettings{
		ConfidenceThreshold: 0.5,
		Opacity:             0.45,
		Outline:             true,
	}
}

func (c *ConfigDB) getVariable(key VariableKey) (string, bool, error) {
	v := Variable{}
	err := c.DB.First(&v, "key = ?", string(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.Value, true, nil
}

func (c *ConfigDB) setVariable(key VariableKey, value string) error {
	return c.DB.Save(&Variable{Key: string(key), Value: value}).Error
}

func (c *ConfigDB) getJSON(key VariableKey, target any) (bool, error) {
	raw, ok, err := c.getVariable(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ConfigDB) setJSON(key VariableKey, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.setVariable(key, string(raw))
}

func (c *ConfigDB) GetInferenceSettings() (InferenceSettings, error) {
	s := DefaultInferenceSettings()
	if _, err := c.getJSON(VarInferenceSettings, &s); err != nil {
		return DefaultInferenceSettings(), err
	}
	return s, nil
}

func (c *ConfigDB) SetInferenceSettings(s InferenceSettings) error {
	return c.setJSON(VarInferenceSettings, s)
}

func (c *ConfigDB) GetVisibilitySettings() (VisibilitySettings, error) {
	s := DefaultVisibilitySettings()
	if _, err := c.getJSON(VarVisibilitySettings, &s); err != nil {
		return DefaultVisibilitySettings(), err
	}
	return s, nil
}

func (c *ConfigDB) SetVisibilitySettings(s VisibilitySettings) error {
	return c.setJSON(VarVisibilitySettings, s)
}

func (c *ConfigDB) GetLastModelHash() (string, error) {
	hash, _, err := c.getVariable(VarLastModelHash)
	return hash, err
}

func (c *ConfigDB) SetLastModelHash(hash string) error {
	return c.setVariable(VarLastModelHash, hash)
}
