package provider

import "math"

// Level describes an AQI band on the US EPA scale used by WAQI.
type Level struct {
	Max         float64
	Description string
	Advice      string
}

// Levels are ordered by Max; the last band is open-ended.
var Levels = []Level{
	{50, "dobra", "Jakość powietrza jest zadowalająca, a zanieczyszczenie stanowi niewielkie lub żadne ryzyko."},
	{100, "umiarkowana", "Osoby szczególnie wrażliwe powinny ograniczyć długotrwały wysiłek na zewnątrz."},
	{150, "niezdrowa dla osób wrażliwych", "Dzieci, osoby starsze i chorujące na choroby układu oddechowego powinny ograniczyć przebywanie na zewnątrz."},
	{200, "niezdrowa", "Wszyscy powinni ograniczyć długotrwały wysiłek na zewnątrz."},
	{300, "bardzo niezdrowa", "Unikaj aktywności na zewnątrz i zamknij okna."},
	{math.Inf(1), "niebezpieczna", "Pozostań w pomieszczeniach i stosuj oczyszczacze powietrza."},
}

// LevelFor returns the band containing aqi.
func LevelFor(aqi float64) Level {
	for _, l := range Levels {
		if aqi <= l.Max {
			return l
		}
	}
	return Levels[len(Levels)-1]
}

type breakpoint struct{ cLo, cHi, iLo, iHi float64 }

var pm25Breakpoints = []breakpoint{
	{0, 12, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 500.4, 301, 500},
}

// AQIFromPM25 converts a PM2.5 concentration in µg/m³ to the EPA index,
// for providers that report concentrations only.
func AQIFromPM25(c float64) float64 {
	if c <= 0 {
		return 0
	}
	c = math.Floor(c*10) / 10
	for _, b := range pm25Breakpoints {
		if c <= b.cHi {
			if c < b.cLo {
				c = b.cLo
			}
			return math.Round((b.iHi-b.iLo)/(b.cHi-b.cLo)*(c-b.cLo) + b.iLo)
		}
	}
	return 500
}

// Trójmiasto bounding box.
const (
	TriCityLat = 54.372158
	TriCityLng = 18.638306

	triCityMinLat = 54.27
	triCityMaxLat = 54.60
	triCityMinLng = 18.35
	triCityMaxLng = 18.80
)

// InTriCity reports whether a coordinate lies in the Gdańsk/Gdynia/Sopot area.
func InTriCity(lat, lng float64) bool {
	return lat >= triCityMinLat && lat <= triCityMaxLat && lng >= triCityMinLng && lng <= triCityMaxLng
}

// DistanceKm is the great-circle distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
