package terrain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siting-cli/internal/suitability"
)

// SolarConstant is the extraterrestrial irradiance in W/m².
const SolarConstant = 1367.0

// SolarParams configures the clear-sky direct-beam exposure model.
type SolarParams struct {
	Latitude       float64   `json:"latitude" yaml:"latitude"`
	Start          time.Time `json:"start" yaml:"start"`
	End            time.Time `json:"end" yaml:"end"`
	DayInterval    int       `json:"day_interval" yaml:"day_interval"`
	HourInterval   float64   `json:"hour_interval" yaml:"hour_interval"`
	Transmissivity float64   `json:"transmissivity" yaml:"transmissivity"`
}

// Validate checks the model parameters.
func (p SolarParams) Validate() error {
	var problems []string
	if p.Latitude < -90 || p.Latitude > 90 || math.IsNaN(p.Latitude) {
		problems = append(problems, fmt.Sprintf("latitude must be in [-90, 90], got %g", p.Latitude))
	}
	if p.Start.IsZero() || p.End.IsZero() {
		problems = append(problems, "start and end dates are required")
	} else if p.End.Before(p.Start) {
		problems = append(problems, "end date is before start date")
	}
	if p.DayInterval < 1 {
		problems = append(problems, fmt.Sprintf("day_interval must be >= 1, got %d", p.DayInterval))
	}
	if !(p.HourInterval > 0) || p.HourInterval > 24 {
		problems = append(problems, fmt.Sprintf("hour_interval must be in (0, 24], got %g", p.HourInterval))
	}
	if !(p.Transmissivity > 0) || p.Transmissivity > 1 {
		problems = append(problems, fmt.Sprintf("transmissivity must be in (0, 1], got %g", p.Transmissivity))
	}
	if len(problems) > 0 {
		return eris.New("terrain: invalid solar parameters: " + strings.Join(problems, "; "))
	}
	return nil
}

// sunPosition is one sample of the sun's path.
type sunPosition struct {
	zenith  float64 // radians
	azimuth float64 // radians clockwise from north
	beam    float64 // Wh/m² on a surface normal to the beam, weighted by the sample span
}

// sunPath samples the sun over the configured period. Each day sample
// stands for DayInterval days and each hour sample for HourInterval hours,
// centred within its span in local solar time.
func (p SolarParams) sunPath() []sunPosition {
	phi := p.Latitude * degToRad
	var path []sunPosition
	start := p.Start.UTC().Truncate(24 * time.Hour)
	end := p.End.UTC().Truncate(24 * time.Hour)
	for day := start; !day.After(end); day = day.AddDate(0, 0, p.DayInterval) {
		decl := 23.45 * degToRad * math.Sin(2*math.Pi*float64(284+day.YearDay())/365)
		span := p.DayInterval
		if remaining := int(end.Sub(day).Hours()/24) + 1; remaining < span {
			span = remaining
		}
		for t := p.HourInterval / 2; t < 24; t += p.HourInterval {
			omega := 15 * (t - 12) * degToRad
			sinAlt := math.Sin(phi)*math.Sin(decl) + math.Cos(phi)*math.Cos(decl)*math.Cos(omega)
			if sinAlt <= 0 {
				continue
			}
			az := math.Atan2(math.Sin(omega), math.Cos(omega)*math.Sin(phi)-math.Tan(decl)*math.Cos(phi)) + math.Pi
			airMass := 1 / sinAlt
			path = append(path, sunPosition{
				zenith:  math.Acos(sinAlt),
				azimuth: az,
				beam:    SolarConstant * math.Pow(p.Transmissivity, airMass) * p.HourInterval * float64(span),
			})
		}
	}
	return path
}

// SolarExposure returns the direct-beam insolation received by each valid
// cell over the period, in Wh/m². Terrain shadowing is not modelled.
func SolarExposure(dem *suitability.Grid, p SolarParams) (*suitability.Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	path := p.sunPath()
	return derive(dem, func(fx, fy float64) float64 {
		slope := math.Atan(math.Hypot(fx, fy))
		aspect := aspectDegrees(fx, fy)
		var total float64
		for _, s := range path {
			cosI := math.Cos(s.zenith)
			if aspect != suitability.AspectFlat {
				cosI = math.Cos(s.zenith)*math.Cos(slope) +
					math.Sin(s.zenith)*math.Sin(slope)*math.Cos(s.azimuth-aspect*degToRad)
			}
			if cosI > 0 {
				total += s.beam * cosI
			}
		}
		return total
	}), nil
}
