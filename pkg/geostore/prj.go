package geostore

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

var prjAuthority = regexp.MustCompile(`AUTHORITY\["EPSG",\s*"(\d+)"\]`)

// prjSRID derives the spatial reference id from a shapefile's .prj
// sidecar. An AUTHORITY clause wins when present (the last one in the WKT
// names the whole system); ESRI-style WKT usually omits it, so the common
// projection names written by QGIS and ArcGIS are matched by substring.
// A missing sidecar or an unrecognized system yields 0.
func prjSRID(shpPath string) int {
	data, err := os.ReadFile(strings.TrimSuffix(shpPath, ".shp") + ".prj")
	if err != nil {
		return 0
	}
	wkt := string(data)

	if m := prjAuthority.FindAllStringSubmatch(wkt, -1); m != nil {
		if v, err := strconv.Atoi(m[len(m)-1][1]); err == nil {
			return v
		}
	}
	switch {
	case strings.Contains(wkt, "Web_Mercator") || strings.Contains(wkt, "Pseudo-Mercator"):
		return 3857
	case strings.HasPrefix(wkt, "GEOGCS") && strings.Contains(wkt, "WGS_1984"):
		return 4326
	}
	return 0
}
