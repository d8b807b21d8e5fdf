package migrations

import (
	"github.com/dukex/flowmigrate/pkg/models"
)

// Property execution types.
const (
	PropertyTypeManual  = "MANUAL"
	PropertyTypeDynamic = "DYNAMIC"
)

// sample data fields that used to live in inputUiInfo.
var sampleDataKeys = []string{"sampleDataFileId", "sampleDataInputFileId", "lastTestDate"}

// NewPropertySettings retires the inputUiInfo side-channel: sample data
// pointers move to sampleDataSettings, and every input key gets a
// propertySettings entry marking it DYNAMIC when it was customized.
func NewPropertySettings() Migration {
	return stepMigration("property-settings", "5", "6", func(step *models.Step) (*models.Step, error) {
		if step.Settings == nil {
			step.Settings = map[string]any{}
		}

		uiInfo, _ := step.Settings[models.SettingsInputUIInfo].(map[string]any)
		customized, _ := uiInfo["customizedInputs"].(map[string]any)

		sampleData := make(map[string]any)

		for _, key := range sampleDataKeys {
			if value, ok := uiInfo[key]; ok && value != nil {
				sampleData[key] = value
			}
		}

		propertySettings := make(map[string]any)

		for key := range inputOf(step.Settings) {
			propertyType := PropertyTypeManual
			if flagged, _ := customized[key].(bool); flagged {
				propertyType = PropertyTypeDynamic
			}

			propertySettings[key] = map[string]any{"type": propertyType}
		}

		delete(step.Settings, models.SettingsInputUIInfo)
		step.Settings[models.SettingsSampleDataSettings] = sampleData
		step.Settings[models.SettingsPropertySettings] = propertySettings

		return step, nil
	})
}
