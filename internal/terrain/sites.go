package terrain

// Known windmill sites on the Zaanse Schans. The training set anchors kernel
// construction and the motif; the validation set is held out and only ever
// exercised by the validation harness.

// KnownTrainingSites returns the default training windmills.
func KnownTrainingSites() []Site {
	return []Site{
		{Name: "De Kat", Lat: 52.47505, Lon: 4.81774},
		{Name: "De Zoeker", Lat: 52.47586, Lon: 4.81765},
		{Name: "Het Jonge Schaap", Lat: 52.47636, Lon: 4.81496},
	}
}

// KnownValidationSites returns the default held-out windmills.
func KnownValidationSites() []Site {
	return []Site{
		{Name: "De Bonte Hen", Lat: 52.47776, Lon: 4.81129},
		{Name: "De Gekroonde Poelenburg", Lat: 52.47449, Lon: 4.81878},
		{Name: "De Huisman", Lat: 52.47387, Lon: 4.81901},
	}
}
