// Package mgrs converts WGS84 coordinates into Military Grid Reference
// System strings.
package mgrs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	equatorialRadius = 6378137.0
	flattening       = 1.0 / 298.257223563
	scaleFactor      = 0.9996
	falseEasting     = 500000.0
	falseNorthing    = 10000000.0
)

var (
	e2  = flattening * (2 - flattening)
	e4  = e2 * e2
	e6  = e4 * e2
	ep2 = e2 / (1 - e2)
)

// I and O are skipped throughout the grid letter schemes.
const (
	latBands   = "CDEFGHJKLMNPQRSTUVWX"
	colLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	rowLetters = "ABCDEFGHJKLMNPQRSTUV"
)

// Encode renders a coordinate pair as a 1 m precision MGRS reference.
// Latitudes outside the -80..84 band system yield "".
func Encode(lat, lon float64) string {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -80 || lat > 84 {
		return ""
	}
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}

	zone := utmZone(lat, lon)
	easting, northing := utmProject(lat, lon, zone)

	band := int((lat + 80) / 8)
	if band > len(latBands)-1 {
		band = len(latBands) - 1
	}

	e100k := int(easting / 100000)
	if e100k < 1 || e100k > 8 {
		return ""
	}
	col := colLetters[((zone-1)%3)*8+e100k-1]
	row := int(northing/100000) % 20
	if zone%2 == 0 {
		row = (row + 5) % 20
	}

	return fmt.Sprintf("%d%c%c%c%05d%05d",
		zone, latBands[band], col, rowLetters[row],
		int(easting)%100000, int(northing)%100000)
}

// EncodeStrings parses decimal strings and encodes them. Empty or
// unparseable values yield "".
func EncodeStrings(lat, lon string) string {
	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return ""
	}
	lonF, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return ""
	}
	return Encode(latF, lonF)
}

// utmZone picks the UTM zone, honoring the grid exceptions around
// southern Norway and Svalbard.
func utmZone(lat, lon float64) int {
	zone := int((lon+180)/6) + 1
	if zone > 60 {
		zone = 60
	}
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 {
		switch {
		case lon >= 0 && lon < 9:
			return 31
		case lon >= 9 && lon < 21:
			return 33
		case lon >= 21 && lon < 33:
			return 35
		case lon >= 33 && lon < 42:
			return 37
		}
	}
	return zone
}

// utmProject runs the transverse Mercator projection for the given
// zone and returns easting/northing in meters, with the southern
// hemisphere false northing applied.
func utmProject(lat, lon float64, zone int) (easting, northing float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	lambda0 := float64((zone-1)*6-180+3) * math.Pi / 180

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := equatorialRadius / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := cosPhi * (lambda - lambda0)

	m := equatorialRadius * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))

	a2 := a * a
	a3 := a2 * a
	a4 := a2 * a2
	a5 := a4 * a
	a6 := a4 * a2

	easting = scaleFactor*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*ep2)*a5/120) + falseEasting
	northing = scaleFactor * (m + n*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))
	if lat < 0 {
		northing += falseNorthing
	}
	return easting, northing
}
