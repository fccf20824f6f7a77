package config

import "gopkg.in/yaml.v3"

// DefaultsConfig holds build-time defaults shipped with the binary.
type DefaultsConfig struct {
	Matching     MatchingDefaults  `yaml:"matching"`
	SessionTypes []SessionType     `yaml:"session_types"`
	Reporting    ReportingDefaults `yaml:"reporting"`
}

type MatchingDefaults struct {
	Threshold float64 `yaml:"threshold"`
	Dim       int     `yaml:"dim"`
}

// SessionType describes an allowed session type (lecture, lab, tutorial).
type SessionType struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

type ReportingDefaults struct {
	LowAttendanceCutoff float64 `yaml:"low_attendance_cutoff"`
}

func loadDefaults() DefaultsConfig {
	var defaults DefaultsConfig
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return defaults
}

// ValidSessionType reports whether code is one of the shipped session types.
func (c *DefaultsConfig) ValidSessionType(code string) bool {
	for _, st := range c.SessionTypes {
		if st.Code == code {
			return true
		}
	}
	return false
}
