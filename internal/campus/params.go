package campus

import (
	"time"

	"github.com/basim-project/basim/internal/equipment/ahu"
	"github.com/basim-project/basim/internal/equipment/boiler"
	"github.com/basim-project/basim/internal/equipment/chiller"
	"github.com/basim-project/basim/internal/equipment/datacenter"
	"github.com/basim-project/basim/internal/equipment/pump"
	"github.com/basim-project/basim/internal/equipment/tower"
	"github.com/basim-project/basim/internal/equipment/wastewater"
	"github.com/basim-project/basim/internal/equipment/zone"
)

// Default equipment constants. These are plausible physical values for a
// commercial campus, not drawn from the physics profile (which tunes
// envelope/internal-gain terms); the assembler wires them the same way
// regardless of campus size, since the count of instances (not their
// individual sizing) is what scales per Profile.

func zoneParams() zone.Params {
	return zone.Params{
		ThermalMassTau:    600,
		EnvelopeUA:        150,
		InternalGains:     800,
		SolarGain:         1200,
		MaxAirFlowCFM:     1200,
		MaxReheatBTU:      15000,
		OccupiedHeating:   70,
		OccupiedCooling:   75,
		UnoccupiedHeating: 60,
		UnoccupiedCooling: 85,
	}
}

func ahuParams() ahu.Params {
	return ahu.Params{
		SupplyTempSetpoint:  55,
		EconomizerHighLimit: 65,
		MaxSupplyFlowCFM:    10000,
		CoilTau:             120,
		FanTau:              30,
		HundredPercentOA:    false,
	}
}

func chillerParams() chiller.Params {
	return chiller.Params{
		CapacityTons:  300,
		RatedKWPerTon: 0.6,
		Rank:          1,
		MinOnTime:     5 * time.Minute,
		MinOffTime:    5 * time.Minute,
		ChwSetpoint:   44,
		LoadTau:       180,
		ChwTempTau:    120,
	}
}

func towerParams() tower.Params {
	return tower.Params{
		CapacityTons: 300,
		CwSetpoint:   85,
		MinApproach:  5,
		MaxApproach:  15,
		CwTempTau:    180,
		FanTau:       30,
	}
}

func boilerParams() boiler.Params {
	return boiler.Params{
		CapacityMBH: 2000,
		LHV:         1000,
		Efficiency:  0.85,
		HwSetpoint:  160,
		LoadTau:     180,
		HwTempTau:   120,
	}
}

func pumpParams() pump.Params {
	return pump.Params{
		RatedFlowGPM: 500,
		RatedHeadFt:  80,
		RatedKW:      25,
		SpeedTau:     15,
	}
}

func rackParams() datacenter.Params {
	return datacenter.Params{
		ITLoadKW:       8,
		RecirculationF: 3,
		ThermalGainK:   1.2,
	}
}

func cracParams() datacenter.CRACParams {
	return datacenter.CRACParams{
		InletSetpoint: 68,
		SupplyTau:     60,
		CoolingKW:     40,
	}
}

func liftStationParams() wastewater.Params {
	return wastewater.Params{
		WetWellCapacityGal: 5000,
		PumpGPM:            400,
		NumPumps:           2,
		HighLevelPct:       80,
		LowLevelPct:        20,
	}
}

func blowerParams() wastewater.BlowerParams {
	return wastewater.BlowerParams{
		DOSetpoint:     2.0,
		DOTau:          300,
		MaxAirflowSCFM: 2000,
	}
}

func clarifierParams() wastewater.ClarifierParams {
	return wastewater.ClarifierParams{
		CapacityMGD:       1.0,
		UnderflowFraction: 0.3,
	}
}
