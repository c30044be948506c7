package schema

// fsHDRChannels is the built-in FS-HDR colour correction table.
var fsHDRChannels = []ChannelDefinition{
	{Index: 0, Name: "Master Gain", ParameterID: "eParamID_TV_Vid1MasterGain", Min: 0, Center: 1000, Max: 3000},
	{Index: 1, Name: "Red Gain", ParameterID: "eParamID_TV_Vid1RedGain", Min: 0, Center: 1000, Max: 3000},
	{Index: 2, Name: "Green Gain", ParameterID: "eParamID_TV_Vid1GreenGain", Min: 0, Center: 1000, Max: 3000},
	{Index: 3, Name: "Blue Gain", ParameterID: "eParamID_TV_Vid1BlueGain", Min: 0, Center: 1000, Max: 3000},
	{Index: 4, Name: "Saturation", ParameterID: "eParamID_TV_Vid1HDRSaturation", Min: 0, Center: 1000, Max: 2000},
	{Index: 5, Name: "Master Lift", ParameterID: "eParamID_TV_Vid1MasterLift", Min: -1000, Center: 0, Max: 1000},
	{Index: 6, Name: "Red Lift", ParameterID: "eParamID_TV_Vid1RedLift", Min: -1000, Center: 0, Max: 1000},
	{Index: 7, Name: "Green Lift", ParameterID: "eParamID_TV_Vid1GreenLift", Min: -1000, Center: 0, Max: 1000},
	{Index: 8, Name: "Blue Lift", ParameterID: "eParamID_TV_Vid1BlueLift", Min: -1000, Center: 0, Max: 1000},
	{Index: 9, Name: "Master Gamma", ParameterID: "eParamID_TV_Vid1MasterGamma", Min: 0, Center: 1000, Max: 2000},
	{Index: 10, Name: "Red Gamma", ParameterID: "eParamID_TV_Vid1RedGamma", Min: 0, Center: 1000, Max: 2000},
	{Index: 11, Name: "Green Gamma", ParameterID: "eParamID_TV_Vid1GreenGamma", Min: 0, Center: 1000, Max: 2000},
	{Index: 12, Name: "Blue Gamma", ParameterID: "eParamID_TV_Vid1BlueGamma", Min: 0, Center: 1000, Max: 2000},
}

// Default returns the built-in FS-HDR gain/saturation/lift/gamma schema.
func Default() *Schema {
	s, err := New(fsHDRChannels)
	if err != nil {
		panic(err)
	}
	return s
}
