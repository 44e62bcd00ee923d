package model

import "time"

// SettingsProfile is a named set of solver settings.
type SettingsProfile struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsBuiltIn   bool     `json:"is_builtin"`
	Settings    Settings `json:"settings"`
}

// BuiltInProfiles returns the profiles shipped with the tool.
func BuiltInProfiles() []SettingsProfile {
	quick := DefaultSettings()
	quick.TimeLimit = 30 * time.Second
	quick.MIPTimeLimit = 5 * time.Second
	quick.GrowthPatience = 1
	quick.RefineContainers = 2

	thorough := DefaultSettings()
	thorough.Algorithm = AlgorithmGenetic
	thorough.TimeLimit = 15 * time.Minute
	thorough.MIPTimeLimit = time.Minute
	thorough.SettleIterations = 25
	thorough.GrowthPatience = 6
	thorough.SubsetLimit = 12

	return []SettingsProfile{
		{Name: "default", Description: "Greedy start, full refinement", IsBuiltIn: true, Settings: DefaultSettings()},
		{Name: "quick", Description: "Short refinement on the two richest containers", IsBuiltIn: true, Settings: quick},
		{Name: "thorough", Description: "Genetic start, long refinement", IsBuiltIn: true, Settings: thorough},
	}
}

// FindProfile returns the profile with the given name, or nil.
func FindProfile(profiles []SettingsProfile, name string) *SettingsProfile {
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i]
		}
	}
	return nil
}
