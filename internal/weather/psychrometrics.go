package weather

import "math"

// standardPressureKPa is sea-level standard atmospheric pressure in kPa,
// used for the psychrometric closed-form approximations below. BASim does
// not model site elevation, so this is treated as a constant.
const standardPressureKPa = 101.325

// saturationVaporPressureKPa returns the saturation vapor pressure at
// temperature tC (Celsius) in kPa, via the Tetens approximation.
func saturationVaporPressureKPa(tC float64) float64 {
	return 0.6108 * math.Exp((17.27*tC)/(tC+237.3))
}

// dewPointC returns the dew point in Celsius given dry-bulb temperature tC
// and relative humidity rh (0..1).
func dewPointC(tC, rh float64) float64 {
	if rh <= 0 {
		rh = 0.01
	}
	gamma := math.Log(rh) + (17.27*tC)/(237.3+tC)
	return (237.3 * gamma) / (17.27 - gamma)
}

// wetBulbC approximates wet-bulb temperature in Celsius from dry-bulb tC
// and relative humidity rhPercent (0..100), using the Stull (2011) empirical formula.
func wetBulbC(tC, rhPercent float64) float64 {
	return tC*math.Atan(0.151977*math.Sqrt(rhPercent+8.313659)) +
		math.Atan(tC+rhPercent) - math.Atan(rhPercent-1.676331) +
		0.00391838*math.Pow(rhPercent, 1.5)*math.Atan(0.023101*rhPercent) -
		4.686035
}

// enthalpyKJPerKg returns moist-air specific enthalpy in kJ/kg given
// dry-bulb temperature tC and humidity ratio w (kg water / kg dry air).
func enthalpyKJPerKg(tC, w float64) float64 {
	return 1.006*tC + w*(2501+1.86*tC)
}

// humidityRatio returns the humidity ratio (kg water/kg dry air) given
// dry-bulb temperature tC and relative humidity rh (0..1).
func humidityRatio(tC, rh float64) float64 {
	pws := saturationVaporPressureKPa(tC)
	pw := rh * pws
	return 0.622 * pw / (standardPressureKPa - pw)
}

func celsiusToFahrenheit(c float64) float64 { return c*9.0/5.0 + 32.0 }
func fahrenheitToCelsius(f float64) float64 { return (f - 32.0) * 5.0 / 9.0 }

// derived bundles the psychrometric quantities computed from dry-bulb
// temperature and relative humidity.
type derived struct {
	WetBulbF  float64
	DewPointF float64
	EnthalpyBTUPerLb float64
}

func computeDerived(oatF, humidityPct float64) derived {
	tC := fahrenheitToCelsius(oatF)
	rh := humidityPct / 100.0

	w := humidityRatio(tC, rh)
	enthalpyKJ := enthalpyKJPerKg(tC, w)

	return derived{
		WetBulbF:         celsiusToFahrenheit(wetBulbC(tC, humidityPct)),
		DewPointF:        celsiusToFahrenheit(dewPointC(tC, rh)),
		EnthalpyBTUPerLb: enthalpyKJ * 0.429923, // kJ/kg -> BTU/lb
	}
}
