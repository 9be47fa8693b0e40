package campus

import "github.com/basim-project/basim/pkg/config"

// Profile is the fixed equipment count the assembler instantiates for one
// campus_size, chosen to land near the specification's point-count targets
// (~10 points for Small, ~100 for Medium, ~500 for Large).
type Profile struct {
	Buildings     int
	AHUsPerBldg   int
	VAVsPerAHU    int
	Chillers      int
	Boilers       int
	Towers        int
	PumpsPerLoop  int
	HasDataCenter bool
	RacksPerCRAC  int
	CRACs         int
	HasWastewater bool
}

// ProfileFor returns the equipment profile for size.
func ProfileFor(size config.CampusSize) Profile {
	switch size {
	case config.SizeSmall:
		return Profile{
			Buildings: 1, AHUsPerBldg: 1, VAVsPerAHU: 3,
			Chillers: 1, Boilers: 1, Towers: 1, PumpsPerLoop: 1,
			HasDataCenter: false, HasWastewater: false,
		}
	case config.SizeLarge:
		return Profile{
			Buildings: 20, AHUsPerBldg: 3, VAVsPerAHU: 4,
			Chillers: 4, Boilers: 3, Towers: 3, PumpsPerLoop: 2,
			HasDataCenter: true, RacksPerCRAC: 8, CRACs: 3,
			HasWastewater: true,
		}
	default: // Medium
		return Profile{
			Buildings: 5, AHUsPerBldg: 2, VAVsPerAHU: 3,
			Chillers: 2, Boilers: 2, Towers: 2, PumpsPerLoop: 2,
			HasDataCenter: true, RacksPerCRAC: 4, CRACs: 1,
			HasWastewater: true,
		}
	}
}
